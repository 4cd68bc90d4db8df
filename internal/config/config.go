package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
)

const (
	clientIDEnvVar     = "DISCORD_CLIENT_ID"
	clientSecretEnvVar = "DISCORD_CLIENT_SECRET"
	callbackURLEnvVar  = "DISCORD_CALLBACK_URL"
	sessionSecretVar   = "SESSION_SECRET"
	webhookURLVar      = "WEBHOOK_URL"
)

// Config is built once at startup and handed to the server. Nothing reads the
// environment after Load returns.
type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	AppName         string        `env:"APP_NAME" envDefault:"ERG Tracking"`
	Env             string        `env:"ENV" envDefault:"DEV"`
	Strict          bool          `env:"CONFIG_STRICT" envDefault:"true"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`

	Discord Discord
	Session Session
	Webhook Webhook
}

type Discord struct {
	ClientID     string `env:"DISCORD_CLIENT_ID"`
	ClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	CallbackURL  string `env:"DISCORD_CALLBACK_URL"`
	AuthURL      string `env:"DISCORD_AUTH_URL" envDefault:"https://discord.com/oauth2/authorize"`
	TokenURL     string `env:"DISCORD_TOKEN_URL" envDefault:"https://discord.com/api/oauth2/token"`
	APIBaseURL   string `env:"DISCORD_API_BASE_URL" envDefault:"https://discord.com/api"`
}

type Session struct {
	Secret string `env:"SESSION_SECRET"`
	// Empty means secure cookies; only "false" (any case) turns the flag off.
	CookieSecure string `env:"COOKIE_SECURE"`
}

type Webhook struct {
	URL string `env:"WEBHOOK_URL"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}

// LoadFrom parses the given key/value set instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}

func (c *Config) Addr() string {
	port := c.Port
	if port == "" || port[0] != ':' {
		port = ":" + port
	}
	return port
}

func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "DEV")
}

// OAuthConfigured reports whether the authorize redirect can be built.
func (c *Config) OAuthConfigured() bool {
	return c.Discord.ClientID != "" && c.Discord.CallbackURL != ""
}

// ExchangeConfigured reports whether the code exchange can run.
func (c *Config) ExchangeConfigured() bool {
	return c.OAuthConfigured() && c.Discord.ClientSecret != ""
}

func (c *Config) SecureCookies() bool {
	pref := strings.ToLower(c.Session.CookieSecure)
	if pref == "" {
		return true
	}
	return pref != "false"
}

// Missing lists the environment keys that are unset, in a stable order.
func (c *Config) Missing() []string {
	var missing []string
	for _, v := range []struct {
		key   string
		value string
	}{
		{clientIDEnvVar, c.Discord.ClientID},
		{clientSecretEnvVar, c.Discord.ClientSecret},
		{callbackURLEnvVar, c.Discord.CallbackURL},
		{sessionSecretVar, c.Session.Secret},
		{webhookURLVar, c.Webhook.URL},
	} {
		if v.value == "" {
			missing = append(missing, v.key)
		}
	}
	return missing
}

// Validate fails when a value needed to log users in is missing and Strict is
// set. A missing webhook URL is never fatal: the forwarder reports it per request.
func (c *Config) Validate() error {
	if !c.Strict {
		return nil
	}
	var required []string
	for _, key := range c.Missing() {
		if key != webhookURLVar {
			required = append(required, key)
		}
	}
	if len(required) > 0 {
		return apperrors.Wrapf(apperrors.ErrConfigurationMissing, "%s", strings.Join(required, ", "))
	}
	return nil
}
