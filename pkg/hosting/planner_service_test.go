package hosting

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/cozykitchen/pkg/config"
	"github.com/go-go-golems/cozykitchen/pkg/graph"
	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/go-go-golems/cozykitchen/pkg/planner"
	"github.com/go-go-golems/cozykitchen/pkg/plugins/graphskills"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProfiles struct{}

func (staticProfiles) Me(context.Context) (*graph.User, error) {
	return &graph.User{DisplayName: "Ada", Skills: []string{"go"}}, nil
}

func fakeGraphClientFactory(config.AzureAdSettings) (graphskills.ProfileReader, error) {
	return staticProfiles{}, nil
}

// scriptedPlanner answers each goal with a canned template or error.
type scriptedPlanner struct {
	templates map[string]string
	errs      map[string]error
	goals     []string
	settings  []config.PlannerSettings
}

func (s *scriptedPlanner) factory(settings config.PlannerSettings) PlanCreator {
	s.settings = append(s.settings, settings)
	return s
}

func (s *scriptedPlanner) CreatePlan(_ context.Context, _ *kernel.Kernel, goal string) (*planner.Plan, error) {
	s.goals = append(s.goals, goal)
	if err, ok := s.errs[goal]; ok {
		return nil, err
	}
	tmpl, ok := s.templates[goal]
	if !ok {
		tmpl = "you asked: {{ .goal }}"
	}
	return planner.NewPlan(goal, tmpl, true), nil
}

func writePromptPlugins(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"ResumeAssistantPlugin/SummarizeResume/skprompt.txt": "Summarize {{$input}}",
		"ResumeAssistantPlugin/SummarizeResume/config.json":  `{"description":"Summarizes a resume"}`,
		"TravelAgentPlugin/SuggestDestination/skprompt.txt":  "Where should someone from {{$country}} travel?",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

type testService struct {
	svc     *PlannerService
	kernel  *kernel.Kernel
	out     *bytes.Buffer
	logs    *bytes.Buffer
	planner *scriptedPlanner
}

func newTestService(t *testing.T, input string, options ...PlannerServiceOption) *testService {
	t.Helper()
	settings := config.DefaultSettings()
	settings.Plugins.Root = writePromptPlugins(t)

	ts := &testService{
		kernel:  kernel.New(kernel.WithLogger(zerolog.Nop())),
		out:     &bytes.Buffer{},
		logs:    &bytes.Buffer{},
		planner: &scriptedPlanner{templates: map[string]string{}, errs: map[string]error{}},
	}
	defaults := []PlannerServiceOption{
		WithPlannerFactory(ts.planner.factory),
		WithGraphClientFactory(fakeGraphClientFactory),
		WithLogger(zerolog.New(ts.logs)),
	}
	svc, err := NewPlannerService(
		context.Background(),
		ts.kernel,
		settings,
		httpclient.NewFactory(settings.HTTP, httpclient.WithLogger(zerolog.Nop())),
		NewConsole(strings.NewReader(input), ts.out),
		append(defaults, options...)...,
	)
	require.NoError(t, err)
	ts.svc = svc
	return ts
}

func TestNewPlannerServiceImportsPromptPlugins(t *testing.T) {
	ts := newTestService(t, "")
	_, err := ts.kernel.Plugins().Function("ResumeAssistantPlugin", "SummarizeResume")
	assert.NoError(t, err)
	_, err = ts.kernel.Plugins().Function("TravelAgentPlugin", "SuggestDestination")
	assert.NoError(t, err)
}

func TestNewPlannerServiceMissingPluginFolder(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Plugins.Root = t.TempDir()

	_, err := NewPlannerService(
		context.Background(),
		kernel.New(kernel.WithLogger(zerolog.Nop())),
		settings,
		httpclient.NewFactory(settings.HTTP),
		NewConsole(strings.NewReader(""), &bytes.Buffer{}),
		WithGraphClientFactory(fakeGraphClientFactory),
	)
	assert.Error(t, err)
}

func TestStartRegistersNativePlugins(t *testing.T) {
	ts := newTestService(t, "")
	require.NoError(t, ts.svc.Start(context.Background()))

	names := []string{}
	for _, p := range ts.kernel.Plugins().List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{
		"GraphSkillsPlugin",
		"MyIpAddressPlugin",
		"ResumeAssistantPlugin",
		"TravelAgentPlugin",
		"UniversityFinderPlugin",
	}, names)

	res, err := ts.kernel.InvokeFunction(context.Background(), "GraphSkillsPlugin", "GetMySkills", nil)
	require.NoError(t, err)
	assert.Equal(t, `["go"]`, res.String())
}

func TestLoopContinuesOnlyOnY(t *testing.T) {
	ts := newTestService(t, "first goal\nY\nsecond goal\ny\nthird goal\nno\nnever asked\n")
	require.NoError(t, ts.svc.Start(context.Background()))

	assert.Equal(t, []string{"first goal", "second goal", "third goal"}, ts.planner.goals)
	assert.Equal(t, 3, strings.Count(ts.out.String(), "How can I help:\n"))
	assert.Equal(t, 3, strings.Count(ts.out.String(), "\n\nDo you want to continue? (Y/N)\n"))
	assert.Contains(t, ts.out.String(), "Plan results:\n\nyou asked: third goal\n")

	// a fresh planner per iteration, loops allowed by default
	require.Len(t, ts.planner.settings, 3)
	assert.True(t, ts.planner.settings[0].AllowLoops)
}

func TestLoopPrintsIndentedPlanBeforeResult(t *testing.T) {
	ts := newTestService(t, "ip\nn\n")
	ts.planner.templates["ip"] = "{{ $s := GraphSkillsPlugin_GetMySkills }}skills: {{ json $s }}"
	require.NoError(t, ts.svc.Start(context.Background()))

	out := ts.out.String()
	planIdx := strings.Index(out, "Plan:\n\n")
	resultIdx := strings.Index(out, "Plan results:\n\n")
	require.True(t, planIdx >= 0 && resultIdx > planIdx, out)

	planJSON := strings.TrimSpace(out[planIdx+len("Plan:\n\n") : resultIdx])
	assert.Contains(t, planJSON, "\n  \"goal\": \"ip\"")
	plan, err := planner.ParsePlan([]byte(planJSON))
	require.NoError(t, err)
	assert.Equal(t, "ip", plan.Goal)

	assert.Contains(t, out, `skills: ["go"]`)
}

func TestLoopPrintsPlanCreationErrorsAndContinues(t *testing.T) {
	ts := newTestService(t, "bad\ny\ngood\nn\n")
	ts.planner.errs["bad"] = &planner.PlanCreationError{
		Message:      "could not create plan",
		Err:          planner.ErrNoPlanFound,
		Prompt:       "the prompt",
		ModelResults: &kernel.ChatMessageContent{Content: "no plan here"},
	}
	require.NoError(t, ts.svc.Start(context.Background()))

	assert.Contains(t, ts.out.String(),
		"Error: "+planner.ErrNoPlanFound.Error()+"\n Prompt: the prompt\n ModelResults: no plan here\n")
	assert.Contains(t, ts.out.String(), "you asked: good")
}

func TestFormatPlanCreationErrorWithMissingParts(t *testing.T) {
	s := FormatPlanCreationError(&planner.PlanCreationError{Message: "could not create plan"})
	assert.Equal(t, "Error: could not create plan\n Prompt: \n ModelResults: ", s)

	wrapped := errors.Wrap(&planner.PlanCreationError{Err: planner.ErrPromptTooLong, Prompt: "p"}, "outer")
	pce, ok := planner.AsPlanCreationError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Error: "+planner.ErrPromptTooLong.Error()+"\n Prompt: p\n ModelResults: ", FormatPlanCreationError(pce))
}

func TestLoopPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("model unavailable")
	ts := newTestService(t, "goal\ny\nother\nn\n")
	ts.planner.errs["goal"] = boom

	err := ts.svc.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, []string{"goal"}, ts.planner.goals)
	assert.NotContains(t, ts.out.String(), "Do you want to continue?")
}

func TestLoopPropagatesPlanExecutionErrors(t *testing.T) {
	ts := newTestService(t, "goal\nn\n")
	ts.planner.templates["goal"] = `{{ fail "execution exploded" }}`

	err := ts.svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution exploded")
	assert.Contains(t, ts.out.String(), "Plan:\n\n")
	assert.NotContains(t, ts.out.String(), "Plan results:")
}

func TestStartFailsWhenGraphClientCannotBeBuilt(t *testing.T) {
	ts := newTestService(t, "goal\nn\n", WithGraphClientFactory(func(config.AzureAdSettings) (graphskills.ProfileReader, error) {
		return nil, config.ErrMissingAzureAdSetting
	}))
	err := ts.svc.Start(context.Background())
	assert.True(t, errors.Is(err, config.ErrMissingAzureAdSetting))
	assert.Empty(t, ts.planner.goals)
}

func TestInteractiveGraphClientFactoryValidatesSettings(t *testing.T) {
	f := NewInteractiveGraphClientFactory(httpclient.NewFactory(httpclient.Settings{}))
	_, err := f(config.AzureAdSettings{ClientID: "only-client"})
	assert.True(t, errors.Is(err, config.ErrMissingAzureAdSetting))
}

func TestStopLogsOneWarning(t *testing.T) {
	ts := newTestService(t, "")
	require.NoError(t, ts.svc.Stop(context.Background()))

	lines := strings.Split(strings.TrimSpace(ts.logs.String()), "\n")
	warnings := 0
	for _, line := range lines {
		if strings.Contains(line, `"level":"warn"`) {
			warnings++
			assert.Contains(t, line, "HostedService Stopped")
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestBundledPromptPlugins(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Plugins.Root = filepath.Join("..", "..", "plugins")
	k := kernel.New(kernel.WithLogger(zerolog.Nop()))

	_, err := NewPlannerService(context.Background(), k, settings,
		httpclient.NewFactory(settings.HTTP),
		NewConsole(strings.NewReader(""), &bytes.Buffer{}),
		WithGraphClientFactory(fakeGraphClientFactory))
	require.NoError(t, err)

	names := []string{}
	for _, md := range k.Plugins().FunctionsMetadata() {
		names = append(names, md.FullyQualifiedName())
	}
	assert.Equal(t, []string{
		"ResumeAssistantPlugin_WriteCoverLetter",
		"ResumeAssistantPlugin_WriteResumeSummary",
		"TravelAgentPlugin_PlanTrip",
		"TravelAgentPlugin_SuggestDestinations",
	}, names)

	f, err := k.Plugins().Function("ResumeAssistantPlugin", "WriteResumeSummary")
	require.NoError(t, err)
	pf, ok := f.(*kernel.PromptFunction)
	require.True(t, ok)
	prompt, err := pf.RenderPrompt(kernel.Arguments{"skills": "Go, SQL"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Go, SQL")
	assert.Contains(t, prompt, "none listed")
	assert.Contains(t, prompt, "at most 80 words")
	assert.NotContains(t, prompt, "Profile:")

	f, err = k.Plugins().Function("TravelAgentPlugin", "PlanTrip")
	require.NoError(t, err)
	prompt, err = f.(*kernel.PromptFunction).RenderPrompt(kernel.Arguments{"destination": "Lisbon", "days": 2})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Plan a 2-day trip to Lisbon.")
}
