package university

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-go-golems/cozykitchen/pkg/httpclient"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	PluginName     = "UniversityFinderPlugin"
	DefaultBaseURL = "http://universities.hipolabs.com"
	DefaultLimit   = 10
)

type Plugin struct {
	client *resty.Client
}

type Option func(*Plugin)

func WithBaseURL(baseURL string) Option {
	return func(p *Plugin) {
		p.client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

func New(factory *httpclient.Factory, options ...Option) *Plugin {
	p := &Plugin{client: factory.CreateClientWithBaseURL(DefaultBaseURL)}
	for _, o := range options {
		o(p)
	}
	return p
}

func (p *Plugin) PluginName() string {
	return PluginName
}

func (p *Plugin) PluginDescription() string {
	return "Searches universities by country and name"
}

func (p *Plugin) KernelFunctions() ([]kernel.Function, error) {
	f, err := kernel.NewNativeFunction("FindUniversities",
		"Finds universities in a country, optionally filtered by part of their name",
		p.FindUniversities)
	if err != nil {
		return nil, err
	}
	return []kernel.Function{f}, nil
}

type FindInput struct {
	Country string `json:"country" jsonschema:"description=Country name in English"`
	Name    string `json:"name,omitempty" jsonschema:"description=Part of the university name"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results,default=10"`
}

type University struct {
	Name          string   `json:"name"`
	Country       string   `json:"country"`
	AlphaTwoCode  string   `json:"alpha_two_code"`
	StateProvince string   `json:"state-province,omitempty"`
	WebPages      []string `json:"web_pages"`
	Domains       []string `json:"domains"`
}

func (p *Plugin) FindUniversities(ctx context.Context, in FindInput) ([]University, error) {
	if strings.TrimSpace(in.Country) == "" && strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("country or name is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := map[string]string{}
	if in.Country != "" {
		query["country"] = strings.TrimSpace(in.Country)
	}
	if in.Name != "" {
		query["name"] = strings.TrimSpace(in.Name)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get("/search")
	if err != nil {
		return nil, errors.Wrap(err, "university search failed")
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, err
	}

	ret := []University{}
	if err := json.Unmarshal(resp.Body(), &ret); err != nil {
		return nil, errors.Wrap(err, "could not decode university search response")
	}
	if len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}
