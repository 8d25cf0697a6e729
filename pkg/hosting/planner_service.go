package hosting

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/config"
	"github.com/go-go-golems/cozykitchen/pkg/graph"
	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/go-go-golems/cozykitchen/pkg/paths"
	"github.com/go-go-golems/cozykitchen/pkg/planner"
	"github.com/go-go-golems/cozykitchen/pkg/plugins/graphskills"
	"github.com/go-go-golems/cozykitchen/pkg/plugins/ipaddress"
	"github.com/go-go-golems/cozykitchen/pkg/plugins/university"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PromptPlugins are imported from the plugins root when the service is built.
var PromptPlugins = []string{"ResumeAssistantPlugin", "TravelAgentPlugin"}

// PlanCreator turns a request into a plan over the kernel functions.
type PlanCreator interface {
	CreatePlan(ctx context.Context, k *kernel.Kernel, goal string) (*planner.Plan, error)
}

// PlannerFactory builds the planner used for one loop iteration.
type PlannerFactory func(settings config.PlannerSettings) PlanCreator

// GraphClientFactory builds the profile source backing GraphSkillsPlugin.
type GraphClientFactory func(settings config.AzureAdSettings) (graphskills.ProfileReader, error)

// DefaultPlannerFactory builds a planner.Planner from the planner settings.
func DefaultPlannerFactory(settings config.PlannerSettings) PlanCreator {
	return planner.New(planner.Options{
		AllowLoops:        settings.AllowLoops,
		ExcludedPlugins:   settings.ExcludedPlugins,
		ExcludedFunctions: settings.ExcludedFunctions,
		MaxPromptTokens:   settings.MaxPromptTokens,
	})
}

// NewInteractiveGraphClientFactory signs in through the browser on first use.
func NewInteractiveGraphClientFactory(httpFactory *httpclient.Factory) GraphClientFactory {
	return func(settings config.AzureAdSettings) (graphskills.ProfileReader, error) {
		if err := settings.Validate(); err != nil {
			return nil, err
		}
		cred, err := graph.NewInteractiveCredential(settings.ClientID, settings.TenantID)
		if err != nil {
			return nil, err
		}
		return graph.NewClient(cred, []string{graph.DefaultScope}, graph.WithHTTPClient(httpFactory.CreateClient()))
	}
}

// PlannerService runs the interactive "ask, plan, execute" loop.
type PlannerService struct {
	kernel      *kernel.Kernel
	settings    *config.Settings
	httpFactory *httpclient.Factory
	console     *Console

	newPlanner     PlannerFactory
	newGraphClient GraphClientFactory
	logger         zerolog.Logger
}

type PlannerServiceOption func(*PlannerService)

func WithPlannerFactory(f PlannerFactory) PlannerServiceOption {
	return func(s *PlannerService) {
		s.newPlanner = f
	}
}

func WithGraphClientFactory(f GraphClientFactory) PlannerServiceOption {
	return func(s *PlannerService) {
		s.newGraphClient = f
	}
}

func WithLogger(logger zerolog.Logger) PlannerServiceOption {
	return func(s *PlannerService) {
		s.logger = logger
	}
}

// NewPlannerService imports the prompt plugins into k. Native plugins are
// registered by Start.
func NewPlannerService(
	ctx context.Context,
	k *kernel.Kernel,
	settings *config.Settings,
	httpFactory *httpclient.Factory,
	console *Console,
	options ...PlannerServiceOption,
) (*PlannerService, error) {
	s := &PlannerService{
		kernel:      k,
		settings:    settings,
		httpFactory: httpFactory,
		console:     console,
		newPlanner:  DefaultPlannerFactory,
		logger:      log.Logger.With().Str("component", "planner-service").Logger(),
	}
	for _, o := range options {
		o(s)
	}
	if s.newGraphClient == nil {
		s.newGraphClient = NewInteractiveGraphClientFactory(httpFactory)
	}

	root, err := paths.PluginsRootFolder(settings.Plugins.Root)
	if err != nil {
		return nil, err
	}
	for _, name := range PromptPlugins {
		p, err := k.ImportPluginFromPromptDirectory(ctx, filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		s.logger.Debug().
			Str("plugin", p.Name).
			Int("functions", len(p.Functions())).
			Msg("imported prompt plugin")
	}

	return s, nil
}

// Kernel returns the kernel the service plans against.
func (s *PlannerService) Kernel() *kernel.Kernel {
	return s.kernel
}

// Start registers the native plugins and runs the loop until the user stops
// it. ctx is only handed to plan execution.
func (s *PlannerService) Start(ctx context.Context) error {
	if err := s.RegisterNativePlugins(); err != nil {
		return err
	}
	return s.run(ctx)
}

// RegisterNativePlugins adds GraphSkillsPlugin, MyIpAddressPlugin and
// UniversityFinderPlugin to the kernel.
func (s *PlannerService) RegisterNativePlugins() error {
	profiles, err := s.newGraphClient(s.settings.AzureAd)
	if err != nil {
		return errors.Wrap(err, "could not create graph client")
	}

	if _, err := s.kernel.ImportPluginFromObject(graphskills.New(profiles), graphskills.PluginName); err != nil {
		return err
	}
	if _, err := s.kernel.ImportPluginFromObject(ipaddress.New(s.httpFactory), ""); err != nil {
		return err
	}
	if _, err := s.kernel.ImportPluginFromObject(university.New(s.httpFactory), ""); err != nil {
		return err
	}
	return nil
}

// Stop does not interrupt a pending console read.
func (s *PlannerService) Stop(context.Context) error {
	s.logger.Warn().Msg("HostedService Stopped")
	return nil
}

func (s *PlannerService) run(ctx context.Context) error {
	for {
		if err := s.console.WriteLine("How can I help:"); err != nil {
			return err
		}
		ask, err := s.console.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.Ask(ctx, ask); err != nil {
			return err
		}

		if err := s.console.WriteLine("\n\nDo you want to continue? (Y/N)"); err != nil {
			return err
		}
		answer, err := s.console.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.ToUpper(answer) != "Y" {
			return nil
		}
	}
}

// Ask plans and runs one request, printing the plan and its result. Plan
// creation failures are printed and swallowed.
func (s *PlannerService) Ask(ctx context.Context, ask string) error {
	plan, err := s.CreatePlan(ctx, ask)
	if err != nil {
		pce, ok := planner.AsPlanCreationError(err)
		if !ok {
			return err
		}
		return s.console.WriteLine(FormatPlanCreationError(pce))
	}

	if err := s.PrintPlan(plan); err != nil {
		return err
	}
	return s.ExecutePlan(ctx, plan)
}

// CreatePlan asks a fresh planner for a plan. Failures are returned as they
// are, *planner.PlanCreationError included.
func (s *PlannerService) CreatePlan(ctx context.Context, ask string) (*planner.Plan, error) {
	plan, err := s.newPlanner(s.settings.Planner).CreatePlan(ctx, s.kernel, ask)
	if err != nil {
		s.logger.Debug().Err(err).Str("ask", ask).Msg("plan creation failed")
		return nil, err
	}
	return plan, nil
}

func (s *PlannerService) PrintPlan(plan *planner.Plan) error {
	b, err := plan.MarshalIndent()
	if err != nil {
		return errors.Wrap(err, "could not serialize plan")
	}
	if err := s.console.WriteLine("Plan:\n"); err != nil {
		return err
	}
	return s.console.WriteLine(string(b))
}

// ExecutePlan runs plan and prints its result.
func (s *PlannerService) ExecutePlan(ctx context.Context, plan *planner.Plan) error {
	result, err := plan.Invoke(ctx, s.kernel, nil)
	if err != nil {
		return err
	}
	if err := s.console.WriteLine("Plan results:\n"); err != nil {
		return err
	}
	return s.console.WriteLine(result)
}

// FormatPlanCreationError renders the inner error, the create-plan prompt and
// the raw model output. Missing parts are left empty.
func FormatPlanCreationError(e *planner.PlanCreationError) string {
	return fmt.Sprintf("Error: %s\n Prompt: %s\n ModelResults: %s", e.Details(), e.Prompt, e.ModelContent())
}
