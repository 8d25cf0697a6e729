package ipaddress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
	})
	mux.HandleFunc("/json/203.0.113.7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","query":"203.0.113.7","country":"Chile","countryCode":"CL","regionName":"Santiago Metropolitan","city":"Santiago","lat":-33.45,"lon":-70.66,"timezone":"America/Santiago"}`))
	})
	mux.HandleFunc("/json/10.0.0.1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newKernel(t *testing.T, srv *httptest.Server) *kernel.Kernel {
	t.Helper()
	factory := httpclient.NewFactory(httpclient.Settings{}, httpclient.WithLogger(zerolog.Nop()))
	k := kernel.New(kernel.WithLogger(zerolog.Nop()))
	_, err := k.ImportPluginFromObject(New(factory, WithBaseURLs(srv.URL, srv.URL)), "")
	require.NoError(t, err)
	return k
}

func TestGetMyIpAddress(t *testing.T) {
	k := newKernel(t, newServer(t))
	res, err := k.InvokeFunction(context.Background(), PluginName, "GetMyIpAddress", nil)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", res.String())
}

func TestGetIpAddressLocation(t *testing.T) {
	k := newKernel(t, newServer(t))
	res, err := k.InvokeFunction(context.Background(), PluginName, "GetIpAddressLocation", kernel.Arguments{
		"ipAddress": "203.0.113.7",
	})
	require.NoError(t, err)
	loc, ok := res.Value.(*Location)
	require.True(t, ok)
	assert.Equal(t, "Chile", loc.Country)
	assert.Equal(t, "Santiago", loc.City)
	assert.Equal(t, "Santiago Metropolitan", loc.Region)
	assert.InDelta(t, -33.45, loc.Latitude, 0.001)

	_, err = k.InvokeFunction(context.Background(), PluginName, "GetIpAddressLocation", kernel.Arguments{
		"ipAddress": "10.0.0.1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private range")

	_, err = k.InvokeFunction(context.Background(), PluginName, "GetIpAddressLocation", kernel.Arguments{})
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	k := newKernel(t, newServer(t))
	f, err := k.Plugins().Function(PluginName, "GetIpAddressLocation")
	require.NoError(t, err)
	md := f.Metadata()
	require.Len(t, md.Parameters, 1)
	assert.Equal(t, "ipAddress", md.Parameters[0].Name)
	assert.Equal(t, "The IP address to locate", md.Parameters[0].Description)
	assert.True(t, md.Parameters[0].Required)
}
