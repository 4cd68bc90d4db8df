package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
	"github.com/jrsteele09/erg-tracking/sessions"
	"golang.org/x/oauth2"
)

const (
	ScopeIdentify = "identify"

	DefaultAuthURL    = "https://discord.com/oauth2/authorize"
	DefaultTokenURL   = "https://discord.com/api/oauth2/token"
	DefaultAPIBaseURL = "https://discord.com/api"

	// Upper bound on provider error bodies surfaced to the browser
	maxErrorBody = 64 << 10
)

// Options configures a Client. Empty endpoint fields fall back to Discord's.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	HTTPClient   *http.Client
}

// Client runs the authorization-code flow against Discord: redirect, code
// exchange, then a single profile fetch. There are no retries.
type Client struct {
	config     oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

// User is the subset of GET /users/@me kept for the session.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	Avatar        *string `json:"avatar"`
}

// UpstreamError reports a non-success status from the provider.
type UpstreamError struct {
	Stage  string // "token" or "profile"
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("discord %s request failed with status %d", e.Stage, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return apperrors.ErrUpstreamRejected
}

func NewClient(opts Options) *Client {
	authURL := valueOr(opts.AuthURL, DefaultAuthURL)
	tokenURL := valueOr(opts.TokenURL, DefaultTokenURL)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		config: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{ScopeIdentify},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams, // client_id and client_secret go in the form body
			},
		},
		apiBaseURL: strings.TrimRight(valueOr(opts.APIBaseURL, DefaultAPIBaseURL), "/"),
		httpClient: httpClient,
	}
}

// AuthURL is where the browser is sent to grant the identify scope.
func (c *Client) AuthURL() string {
	return c.config.AuthCodeURL("")
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMalformedInput, "missing code")
	}
	tok, err := c.config.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if apperrors.As(err, &retrieveErr) {
			return nil, &UpstreamError{
				Stage:  "token",
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}

// FetchUser loads the profile of the user who granted tok.
func (c *Client) FetchUser(ctx context.Context, tok *oauth2.Token) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{Stage: "profile", Status: resp.StatusCode, Body: string(body)}
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &user, nil
}

// Authenticate runs the exchange and profile fetch for a callback code.
func (c *Client) Authenticate(ctx context.Context, code string) (*User, error) {
	tok, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.FetchUser(ctx, tok)
}

// Payload converts the profile into the claims stored in the session cookie.
func (u *User) Payload() sessions.Payload {
	return sessions.Payload{
		ID:            u.ID,
		Username:      u.Username,
		Discriminator: u.Discriminator,
		Avatar:        u.Avatar,
	}
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
