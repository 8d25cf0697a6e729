package httpclient

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactoryDefaults(t *testing.T) {
	f := NewFactory(Settings{RetryCount: -3})
	assert.Equal(t, DefaultTimeout, f.Settings().Timeout)
	assert.Equal(t, DefaultUserAgent, f.Settings().UserAgent)
	assert.Equal(t, 0, f.Settings().RetryCount)
}

func TestCreateClientIndependence(t *testing.T) {
	f := NewFactory(Settings{})
	assert.NotSame(t, f.CreateClient(), f.CreateClient())
}

func TestCreateClientSendsUserAgentAndLogs(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	buf := &bytes.Buffer{}
	f := NewFactory(Settings{UserAgent: "test-agent", Timeout: time.Second}, WithLogger(zerolog.New(buf).Level(zerolog.DebugLevel)))
	resp, err := f.CreateClientWithBaseURL(srv.URL + "/").R().Get("/ping")
	require.NoError(t, err)
	require.NoError(t, CheckResponse(resp))
	assert.Equal(t, "test-agent", userAgent)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), "/ping")
}

func TestCheckResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/empty") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(" nothing here \n"))
	}))
	defer srv.Close()

	client := NewFactory(Settings{}).CreateClientWithBaseURL(srv.URL)

	resp, err := client.R().Get("/missing")
	require.NoError(t, err)
	err = CheckResponse(resp)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "http 404: nothing here", err.Error())

	resp, err = client.R().Get("/empty")
	require.NoError(t, err)
	assert.Equal(t, "http 502: Bad Gateway", CheckResponse(resp).Error())
}
