package hosting

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-go-golems/cozykitchen/pkg/config"
	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/go-go-golems/cozykitchen/pkg/llm/openai"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const plannerServiceOptionsGroup = `group:"planner-service-options"`

// AsPlannerServiceOption annotates a constructor returning a
// PlannerServiceOption so that the planner service picks it up.
func AsPlannerServiceOption(f interface{}) interface{} {
	return fx.Annotate(f, fx.ResultTags(plannerServiceOptionsGroup))
}

var Module = fx.Module("hosting",
	fx.Provide(
		NewEventBus,
		NewHTTPClientFactory,
		NewChatCompletionService,
		NewKernel,
		providePlannerService,
	),
	fx.Invoke(registerEventLogger),
	fx.Invoke(registerPlannerServiceHooks),
)

// NewApp wires the planner console. It stops itself once the loop ends.
func NewApp(settings *config.Settings, console *Console, logger zerolog.Logger, options ...fx.Option) *fx.App {
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return NewFxLogger(logger)
		}),
		fx.Supply(settings, console, logger),
		Module,
		fx.Options(options...),
	)
}

func NewEventBus(logger zerolog.Logger) *gochannel.GoChannel {
	return kernel.NewEventPubSub(logger.With().Str("component", "events").Logger())
}

func NewHTTPClientFactory(settings *config.Settings, logger zerolog.Logger) *httpclient.Factory {
	return httpclient.NewFactory(settings.HTTP,
		httpclient.WithLogger(logger.With().Str("component", "httpclient").Logger()))
}

func NewChatCompletionService(settings *config.Settings) (kernel.ChatCompletionService, error) {
	chat, err := openai.NewChatCompletion(settings.OpenAI)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func NewKernel(chat kernel.ChatCompletionService, bus *gochannel.GoChannel, logger zerolog.Logger) *kernel.Kernel {
	return kernel.New(
		kernel.WithChatCompletion(chat),
		kernel.WithLogger(logger.With().Str("component", "kernel").Logger()),
		kernel.WithPublisher(bus, kernel.DefaultEventTopic),
	)
}

type plannerServiceParams struct {
	fx.In

	Kernel      *kernel.Kernel
	Settings    *config.Settings
	HTTPFactory *httpclient.Factory
	Console     *Console
	Logger      zerolog.Logger
	Options     []PlannerServiceOption `group:"planner-service-options"`
}

func providePlannerService(p plannerServiceParams) (*PlannerService, error) {
	logger := p.Logger.With().Str("component", "planner-service").Logger()
	options := append([]PlannerServiceOption{WithLogger(logger)}, p.Options...)
	return NewPlannerService(context.Background(), p.Kernel, p.Settings, p.HTTPFactory, p.Console, options...)
}

func registerPlannerServiceHooks(lc fx.Lifecycle, shutdowner fx.Shutdowner, svc *PlannerService, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				if err := svc.Start(ctx); err != nil {
					logger.Error().Err(err).Msg("planner service failed")
					code = 1
				}
				if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
					logger.Debug().Err(err).Msg("could not request shutdown")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			return svc.Stop(stopCtx)
		},
	})
}

func registerEventLogger(lc fx.Lifecycle, bus *gochannel.GoChannel, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.With().Str("component", "events").Logger()

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			messages, err := bus.Subscribe(ctx, kernel.DefaultEventTopic)
			if err != nil {
				return err
			}
			go func() {
				for msg := range messages {
					e, err := kernel.NewInvocationEventFromMessage(msg)
					if err != nil {
						logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not decode kernel event")
						msg.Ack()
						continue
					}
					ev := logger.Debug().
						Str("event", string(e.Type)).
						Str("invocation_id", e.InvocationID.String()).
						Str("plugin", e.PluginName).
						Str("function", e.FunctionName)
					if e.Duration > 0 {
						ev = ev.Dur("duration", e.Duration)
					}
					if e.Error != "" {
						ev = ev.Str("error", e.Error)
					}
					ev.Msg("kernel event")
					msg.Ack()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return bus.Close()
		},
	})
}
