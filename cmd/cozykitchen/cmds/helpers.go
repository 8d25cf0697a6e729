package cmds

import (
	"context"
	"io"

	"github.com/go-go-golems/cozykitchen/pkg/config"
	"github.com/go-go-golems/cozykitchen/pkg/hosting"
	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// newPlannerService builds a service with every plugin registered, for the
// commands that do not run the interactive loop.
func newPlannerService(ctx context.Context, in io.Reader, out io.Writer, settings *config.Settings) (*hosting.PlannerService, error) {
	chat, err := hosting.NewChatCompletionService(settings)
	if err != nil {
		return nil, err
	}
	k := kernel.New(
		kernel.WithChatCompletion(chat),
		kernel.WithLogger(log.Logger.With().Str("component", "kernel").Logger()),
	)
	httpFactory := httpclient.NewFactory(settings.HTTP,
		httpclient.WithLogger(log.Logger.With().Str("component", "httpclient").Logger()))

	svc, err := hosting.NewPlannerService(ctx, k, settings, httpFactory,
		hosting.NewConsole(in, out))
	if err != nil {
		return nil, err
	}
	if err := svc.RegisterNativePlugins(); err != nil {
		return nil, err
	}
	return svc, nil
}
