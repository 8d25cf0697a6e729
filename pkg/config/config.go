// Package config holds the settings of the planner console and loads them
// from viper (config file, COZYKITCHEN_ environment variables and flags).
package config

import (
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/llm/openai"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const EnvPrefix = "COZYKITCHEN"

var ErrMissingAzureAdSetting = errors.New("missing AzureAd setting")

type AzureAdSettings struct {
	ClientID string `mapstructure:"ClientId" yaml:"ClientId"`
	TenantID string `mapstructure:"TenantId" yaml:"TenantId"`
}

// Validate checks both AzureAd keys are set.
func (a AzureAdSettings) Validate() error {
	if strings.TrimSpace(a.ClientID) == "" {
		return errors.Wrap(ErrMissingAzureAdSetting, "AzureAd:ClientId")
	}
	if strings.TrimSpace(a.TenantID) == "" {
		return errors.Wrap(ErrMissingAzureAdSetting, "AzureAd:TenantId")
	}
	return nil
}

type PluginsSettings struct {
	Root string `mapstructure:"root" yaml:"root"`
}

type PlannerSettings struct {
	AllowLoops        bool     `mapstructure:"allow-loops" yaml:"allow-loops"`
	MaxPromptTokens   int      `mapstructure:"max-prompt-tokens" yaml:"max-prompt-tokens"`
	ExcludedPlugins   []string `mapstructure:"excluded-plugins" yaml:"excluded-plugins"`
	ExcludedFunctions []string `mapstructure:"excluded-functions" yaml:"excluded-functions"`
}

type Settings struct {
	AzureAd AzureAdSettings     `mapstructure:"AzureAd" yaml:"AzureAd"`
	OpenAI  openai.Settings     `mapstructure:"openai" yaml:"openai"`
	Plugins PluginsSettings     `mapstructure:"plugins" yaml:"plugins"`
	Planner PlannerSettings     `mapstructure:"planner" yaml:"planner"`
	HTTP    httpclient.Settings `mapstructure:"http" yaml:"http"`
}

func DefaultSettings() *Settings {
	return &Settings{
		OpenAI: openai.Settings{
			Model: openai.DefaultModel,
		},
		Planner: PlannerSettings{
			AllowLoops: true,
		},
		HTTP: httpclient.Settings{
			Timeout:    httpclient.DefaultTimeout,
			UserAgent:  httpclient.DefaultUserAgent,
			RetryCount: 1,
		},
	}
}

// SetDefaults registers every key, which also lets AutomaticEnv pick up
// keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("AzureAd.ClientId", d.AzureAd.ClientID)
	v.SetDefault("AzureAd.TenantId", d.AzureAd.TenantID)

	v.SetDefault("openai.api-key", d.OpenAI.APIKey)
	v.SetDefault("openai.base-url", d.OpenAI.BaseURL)
	v.SetDefault("openai.organization", d.OpenAI.Organization)
	v.SetDefault("openai.model", d.OpenAI.Model)

	v.SetDefault("plugins.root", d.Plugins.Root)

	v.SetDefault("planner.allow-loops", d.Planner.AllowLoops)
	v.SetDefault("planner.max-prompt-tokens", d.Planner.MaxPromptTokens)
	v.SetDefault("planner.excluded-plugins", []string{})
	v.SetDefault("planner.excluded-functions", []string{})

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user-agent", d.HTTP.UserAgent)
	v.SetDefault("http.retry-count", d.HTTP.RetryCount)
}

// ConfigureEnv maps `openai.api-key` to COZYKITCHEN_OPENAI_API_KEY.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func Load(v *viper.Viper) (*Settings, error) {
	SetDefaults(v)

	s := DefaultSettings()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "could not decode configuration")
	}
	if s.HTTP.Timeout <= 0 {
		return nil, errors.Errorf("http.timeout must be positive, got %s", s.HTTP.Timeout)
	}
	if s.Planner.MaxPromptTokens < 0 {
		return nil, errors.Errorf("planner.max-prompt-tokens must not be negative, got %d", s.Planner.MaxPromptTokens)
	}
	return s, nil
}
