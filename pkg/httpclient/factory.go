package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "cozykitchen"
)

type Settings struct {
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent  string        `mapstructure:"user-agent" yaml:"user-agent"`
	RetryCount int           `mapstructure:"retry-count" yaml:"retry-count"`
}

// Factory hands out independent resty clients sharing timeout, user agent,
// retry and logging configuration.
type Factory struct {
	settings Settings
	logger   zerolog.Logger
}

type Option func(*Factory)

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

func NewFactory(settings Settings, options ...Option) *Factory {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.UserAgent == "" {
		settings.UserAgent = DefaultUserAgent
	}
	if settings.RetryCount < 0 {
		settings.RetryCount = 0
	}
	f := &Factory{
		settings: settings,
		logger:   log.Logger.With().Str("component", "httpclient").Logger(),
	}
	for _, o := range options {
		o(f)
	}
	return f
}

func (f *Factory) Settings() Settings {
	return f.settings
}

// CreateClient returns a new client. Every call gets its own connection pool.
func (f *Factory) CreateClient() *resty.Client {
	logger := f.logger
	return resty.New().
		SetTimeout(f.settings.Timeout).
		SetHeader("User-Agent", f.settings.UserAgent).
		SetRetryCount(f.settings.RetryCount).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			logger.Debug().
				Str("method", resp.Request.Method).
				Str("url", resp.Request.URL).
				Int("status", resp.StatusCode()).
				Dur("duration", resp.Time()).
				Msg("http request")
			return nil
		})
}

// CreateClientWithBaseURL is CreateClient with a trailing-slash-free base URL.
func (f *Factory) CreateClientWithBaseURL(baseURL string) *resty.Client {
	return f.CreateClient().SetBaseURL(strings.TrimRight(baseURL, "/"))
}

// StatusError is returned by CheckResponse for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

func CheckResponse(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	return &StatusError{
		StatusCode: resp.StatusCode(),
		Body:       strings.TrimSpace(string(resp.Body())),
	}
}
