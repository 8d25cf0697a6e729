package hosting

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/cozykitchen/pkg/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

// lockedBuffer is written by the fx, loop and event goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runApp(t *testing.T, input string, p *scriptedPlanner) (int, string, string) {
	t.Helper()

	settings := config.DefaultSettings()
	settings.Plugins.Root = writePromptPlugins(t)
	settings.OpenAI.APIKey = "sk-test"

	out := &bytes.Buffer{}
	logs := &lockedBuffer{}
	app := NewApp(settings, NewConsole(strings.NewReader(input), out), zerolog.New(logs),
		fx.Provide(
			AsPlannerServiceOption(func() PlannerServiceOption { return WithPlannerFactory(p.factory) }),
			AsPlannerServiceOption(func() PlannerServiceOption { return WithGraphClientFactory(fakeGraphClientFactory) }),
		),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, app.Start(ctx))
	var signal fx.ShutdownSignal
	select {
	case signal = <-app.Wait():
	case <-ctx.Done():
		t.Fatal("planner loop did not finish")
	}
	require.NoError(t, app.Stop(ctx))

	return signal.ExitCode, out.String(), logs.String()
}

func TestAppRunsLoopAndShutsDown(t *testing.T) {
	p := &scriptedPlanner{templates: map[string]string{}, errs: map[string]error{}}
	code, out, logs := runApp(t, "hello\nn\n", p)

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"hello"}, p.goals)
	assert.Contains(t, out, "Plan results:\n\nyou asked: hello\n")
	assert.Equal(t, 1, strings.Count(logs, "HostedService Stopped"))
}

func TestAppExitsWithErrorCode(t *testing.T) {
	p := &scriptedPlanner{templates: map[string]string{}, errs: map[string]error{
		"hello": errors.New("model unavailable"),
	}}
	code, _, logs := runApp(t, "hello\n", p)

	assert.Equal(t, 1, code)
	assert.Contains(t, logs, "model unavailable")
}

func TestAppRunsNativePluginsInPlans(t *testing.T) {
	p := &scriptedPlanner{
		templates: map[string]string{"skills": "{{ GraphSkillsPlugin_GetMySkills }}"},
		errs:      map[string]error{},
	}
	_, out, _ := runApp(t, "skills\nn\n", p)
	assert.Contains(t, out, "Plan results:\n\n[go]\n")
}

func TestAppFailsWithoutOpenAIKey(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Plugins.Root = writePromptPlugins(t)

	app := NewApp(settings, NewConsole(strings.NewReader(""), &bytes.Buffer{}), zerolog.Nop())
	assert.Error(t, app.Err())
}
