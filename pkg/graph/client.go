package graph

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// tokens are refreshed this long before they expire
const tokenRefreshMargin = 5 * time.Minute

// Client is a small Microsoft Graph REST client authenticated with an azcore
// credential.
type Client struct {
	http       *resty.Client
	credential azcore.TokenCredential
	scopes     []string
	logger     zerolog.Logger
	now        func() time.Time

	mu    sync.Mutex
	token azcore.AccessToken
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default resty client. DefaultBaseURL is used
// when c has no base URL.
func WithHTTPClient(c *resty.Client) ClientOption {
	return func(client *Client) {
		client.http = c
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(client *Client) {
		client.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

func withClock(now func() time.Time) ClientOption {
	return func(client *Client) {
		client.now = now
	}
}

func NewClient(credential azcore.TokenCredential, scopes []string, options ...ClientOption) (*Client, error) {
	if credential == nil {
		return nil, errors.New("graph client needs a credential")
	}
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	c := &Client{
		http:       resty.New(),
		credential: credential,
		scopes:     scopes,
		logger:     log.Logger.With().Str("component", "graph").Logger(),
		now:        time.Now,
	}
	for _, o := range options {
		o(c)
	}
	if c.http.BaseURL == "" {
		c.http.SetBaseURL(DefaultBaseURL)
	}
	return c, nil
}

func (c *Client) Scopes() []string {
	return c.scopes
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Token != "" && c.now().Add(tokenRefreshMargin).Before(c.token.ExpiresOn) {
		return c.token.Token, nil
	}

	c.logger.Debug().Strs("scopes", c.scopes).Msg("requesting graph access token")
	token, err := c.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: c.scopes})
	if err != nil {
		return "", errors.Wrap(err, "could not get graph access token")
	}
	c.token = token
	return token.Token, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Accept", "application/json").
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return errors.Wrapf(err, "graph request %s failed", path)
	}
	if err := mapError(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "could not decode graph response for %s", path)
	}
	return nil
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	user := &User{}
	err := c.get(ctx, "/me", map[string]string{
		"$select": strings.Join(userSelect, ","),
	}, user)
	if err != nil {
		return nil, err
	}
	return user, nil
}
