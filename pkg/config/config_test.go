package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load(viper.New())
	require.NoError(t, err)
	assert.True(t, s.Planner.AllowLoops)
	assert.Equal(t, 0, s.Planner.MaxPromptTokens)
	assert.Equal(t, "gpt-4o-mini", s.OpenAI.Model)
	assert.Equal(t, 30*time.Second, s.HTTP.Timeout)
	assert.Equal(t, "", s.AzureAd.ClientID)
}

const configYAML = `
AzureAd:
  ClientId: client-123
  TenantId: tenant-456
openai:
  api-key: sk-test
  model: gpt-4o
plugins:
  root: /srv/plugins
planner:
  allow-loops: false
  max-prompt-tokens: 4000
  excluded-functions:
    - "TravelAgentPlugin_*"
http:
  timeout: 5s
  retry-count: 3
`

func TestLoadFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(configYAML)))

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "client-123", s.AzureAd.ClientID)
	assert.Equal(t, "tenant-456", s.AzureAd.TenantID)
	assert.NoError(t, s.AzureAd.Validate())
	assert.Equal(t, "sk-test", s.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", s.OpenAI.Model)
	assert.Equal(t, "/srv/plugins", s.Plugins.Root)
	assert.False(t, s.Planner.AllowLoops)
	assert.Equal(t, 4000, s.Planner.MaxPromptTokens)
	assert.Equal(t, []string{"TravelAgentPlugin_*"}, s.Planner.ExcludedFunctions)
	assert.Equal(t, 5*time.Second, s.HTTP.Timeout)
	assert.Equal(t, 3, s.HTTP.RetryCount)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COZYKITCHEN_AZUREAD_CLIENTID", "env-client")
	t.Setenv("COZYKITCHEN_OPENAI_API_KEY", "sk-env")
	t.Setenv("COZYKITCHEN_PLANNER_ALLOW_LOOPS", "false")

	v := viper.New()
	ConfigureEnv(v)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "env-client", s.AzureAd.ClientID)
	assert.Equal(t, "sk-env", s.OpenAI.APIKey)
	assert.False(t, s.Planner.AllowLoops)
}

func TestAzureAdValidate(t *testing.T) {
	err := AzureAdSettings{TenantID: "t"}.Validate()
	assert.True(t, errors.Is(err, ErrMissingAzureAdSetting))
	assert.Contains(t, err.Error(), "ClientId")

	err = AzureAdSettings{ClientID: "c"}.Validate()
	assert.True(t, errors.Is(err, ErrMissingAzureAdSetting))
	assert.Contains(t, err.Error(), "TenantId")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("http.timeout", "-1s")
	_, err := Load(v)
	assert.Error(t, err)

	v = viper.New()
	v.Set("planner.max-prompt-tokens", -5)
	_, err = Load(v)
	assert.Error(t, err)
}
