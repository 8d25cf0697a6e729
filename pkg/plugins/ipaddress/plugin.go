package ipaddress

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	PluginName = "MyIpAddressPlugin"

	DefaultIPURL       = "https://api.ipify.org"
	DefaultLocationURL = "http://ip-api.com"
)

type Plugin struct {
	ip       *resty.Client
	location *resty.Client
}

type Option func(*Plugin)

// WithBaseURLs points both lookups at other servers.
func WithBaseURLs(ipURL, locationURL string) Option {
	return func(p *Plugin) {
		p.ip.SetBaseURL(strings.TrimRight(ipURL, "/"))
		p.location.SetBaseURL(strings.TrimRight(locationURL, "/"))
	}
}

func New(factory *httpclient.Factory, options ...Option) *Plugin {
	p := &Plugin{
		ip:       factory.CreateClientWithBaseURL(DefaultIPURL),
		location: factory.CreateClientWithBaseURL(DefaultLocationURL),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

func (p *Plugin) PluginName() string {
	return PluginName
}

func (p *Plugin) PluginDescription() string {
	return "Finds the public IP address of this machine and where it is located"
}

func (p *Plugin) KernelFunctions() ([]kernel.Function, error) {
	ip, err := kernel.NewNativeFunction("GetMyIpAddress",
		"Returns the public IP address of the user",
		p.GetMyIpAddress)
	if err != nil {
		return nil, err
	}
	location, err := kernel.NewNativeFunction("GetIpAddressLocation",
		"Returns the geographical location (country, region, city) of an IP address",
		p.GetIpAddressLocation)
	if err != nil {
		return nil, err
	}
	return []kernel.Function{ip, location}, nil
}

type ipifyResponse struct {
	IP string `json:"ip"`
}

func (p *Plugin) GetMyIpAddress(ctx context.Context) (string, error) {
	resp, err := p.ip.R().
		SetContext(ctx).
		SetQueryParam("format", "json").
		Get("/")
	if err != nil {
		return "", errors.Wrap(err, "ip address request failed")
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return "", err
	}

	body := ipifyResponse{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", errors.Wrap(err, "could not decode ip address response")
	}
	if body.IP == "" {
		return "", errors.New("ip address response is empty")
	}
	return body.IP, nil
}

type LocationInput struct {
	IPAddress string `json:"ipAddress" jsonschema:"description=The IP address to locate"`
}

type Location struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Query       string  `json:"query"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

func (p *Plugin) GetIpAddressLocation(ctx context.Context, in LocationInput) (*Location, error) {
	ip := strings.TrimSpace(in.IPAddress)
	if ip == "" {
		return nil, errors.New("ipAddress is required")
	}

	resp, err := p.location.R().
		SetContext(ctx).
		Get("/json/" + url.PathEscape(ip))
	if err != nil {
		return nil, errors.Wrap(err, "ip location request failed")
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, err
	}

	body := ipAPIResponse{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, errors.Wrap(err, "could not decode ip location response")
	}
	if body.Status != "success" {
		return nil, errors.Errorf("could not locate %s: %s", ip, body.Message)
	}

	return &Location{
		IP:          body.Query,
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Region:      body.RegionName,
		City:        body.City,
		Latitude:    body.Lat,
		Longitude:   body.Lon,
		Timezone:    body.Timezone,
	}, nil
}
