package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/erg-tracking/discord/discordfake"
	"github.com/jrsteele09/erg-tracking/internal/config"
	"github.com/jrsteele09/erg-tracking/server"
	"github.com/jrsteele09/erg-tracking/sessions"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret"

var testAvatar = "8342729096ea3675442027381ff50dfe"

var testUser = sessions.Payload{
	ID:            "80351110224678912",
	Username:      "nelly",
	Discriminator: "1337",
	Avatar:        &testAvatar,
}

// webhookSink is a fake notification endpoint answering with a fixed status.
type webhookSink struct {
	*httptest.Server
	mu     sync.Mutex
	status int
	bodies []map[string]any
}

func newWebhookSink(t *testing.T, status int) *webhookSink {
	t.Helper()
	s := &webhookSink{status: status}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.mu.Unlock()
		w.WriteHeader(s.status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *webhookSink) calls() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.bodies...)
}

type fixture struct {
	config   *config.Config
	provider *discordfake.Provider
	handler  http.Handler
}

func newFixture(t *testing.T, webhookURL string, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	p := discordfake.New()
	t.Cleanup(p.Close)

	cfg := &config.Config{
		Env:             "TEST",
		UpstreamTimeout: 5 * time.Second,
		Discord: config.Discord{
			ClientID:     "client-123",
			ClientSecret: "secret-456",
			CallbackURL:  "http://localhost:3000/api/auth/callback",
			AuthURL:      p.AuthURL(),
			TokenURL:     p.TokenURL(),
			APIBaseURL:   p.APIBaseURL(),
		},
		Session: config.Session{Secret: testSecret},
		Webhook: config.Webhook{URL: webhookURL},
	}
	for _, m := range mutate {
		m(cfg)
	}

	return &fixture{config: cfg, provider: p, handler: server.New(cfg)}
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func sessionCookie(t *testing.T, secret string) *http.Cookie {
	t.Helper()
	token, err := sessions.NewCodec(secret).Sign(testUser)
	require.NoError(t, err)
	return &http.Cookie{Name: sessions.CookieName, Value: token}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDiscordLogin(t *testing.T) {
	t.Run("redirects to provider", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/discord", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		require.Equal(t, f.provider.AuthURL(), loc.Scheme+"://"+loc.Host+loc.Path)
		require.Equal(t, "client-123", loc.Query().Get("client_id"))
		require.Equal(t, "http://localhost:3000/api/auth/callback", loc.Query().Get("redirect_uri"))
		require.Equal(t, "code", loc.Query().Get("response_type"))
		require.Equal(t, "identify", loc.Query().Get("scope"))
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, "", func(c *config.Config) { c.Discord.ClientID = "" })
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/discord", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "Discord OAuth not configured")
	})
}

func TestOAuthCallback(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Missing code")
	})

	t.Run("success sets cookie and redirects", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+discordfake.ValidCode, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/?auth=success", rec.Header().Get("Location"))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, sessions.CookieName, cookies[0].Name)
		require.True(t, cookies[0].Secure)
		require.True(t, cookies[0].HttpOnly)
		require.Equal(t, 604800, cookies[0].MaxAge)

		got, ok := sessions.NewCodec(testSecret).Verify(cookies[0].Value)
		require.True(t, ok)
		require.Equal(t, testUser, *got)
	})

	t.Run("cookie secure opt-out", func(t *testing.T) {
		f := newFixture(t, "", func(c *config.Config) { c.Session.CookieSecure = "false" })
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+discordfake.ValidCode, nil))

		require.Equal(t, http.StatusFound, rec.Code)
		require.False(t, rec.Result().Cookies()[0].Secure)
	})

	t.Run("token exchange rejected", func(t *testing.T) {
		f := newFixture(t, "")
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=bad", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Token exchange failed: ")
		require.Contains(t, rec.Body.String(), "invalid_grant")
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("profile fetch rejected", func(t *testing.T) {
		f := newFixture(t, "")
		f.provider.SetProfileStatus(http.StatusUnauthorized)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+discordfake.ValidCode, nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "User fetch failed")
	})

	t.Run("provider unreachable", func(t *testing.T) {
		f := newFixture(t, "", func(c *config.Config) { c.Discord.TokenURL = "http://127.0.0.1:1/token" })
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+discordfake.ValidCode, nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "Callback error: ")
	})

	t.Run("session secret missing", func(t *testing.T) {
		f := newFixture(t, "", func(c *config.Config) { c.Session.Secret = "" })
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/auth/callback?code="+discordfake.ValidCode, nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "SESSION_SECRET not configured")
	})
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t, "")

	t.Run("anonymous", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/user", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
	})

	t.Run("forged cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.AddCookie(sessionCookie(t, "someone-elses-secret"))
		rec := f.do(r)
		require.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
	})

	t.Run("logged in", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		r.AddCookie(sessionCookie(t, testSecret))
		rec := f.do(r)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"loggedIn":true,"user":{"id":"80351110224678912","username":"nelly","discriminator":"1337","avatar":"8342729096ea3675442027381ff50dfe"}}`, rec.Body.String())
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("secret missing", func(t *testing.T) {
		f := newFixture(t, "", func(c *config.Config) { c.Session.Secret = "" })
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/user", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "SESSION_SECRET not configured", decode(t, rec)["error"])
	})
}

func TestSubmit_Unauthenticated(t *testing.T) {
	sink := newWebhookSink(t, http.StatusOK)
	f := newFixture(t, sink.URL)

	bodies := []string{`{"hours":5}`, ``, `not json`, `[1,2,3]`}
	for _, kind := range []string{"application", "checkin", "training", "promotion"} {
		for _, body := range bodies {
			r := httptest.NewRequest(http.MethodPost, "/api/submit/"+kind, strings.NewReader(body))
			rec := f.do(r)
			require.Equal(t, http.StatusUnauthorized, rec.Code, "kind=%s body=%q", kind, body)
			require.Equal(t, "unauthenticated", decode(t, rec)["error"])

			r = httptest.NewRequest(http.MethodPost, "/api/submit/"+kind, strings.NewReader(body))
			r.AddCookie(sessionCookie(t, "wrong-secret"))
			rec = f.do(r)
			require.Equal(t, http.StatusUnauthorized, rec.Code, "kind=%s body=%q", kind, body)
		}
	}
	require.Empty(t, sink.calls())
}

func TestSubmit_CheckinForwarded(t *testing.T) {
	sink := newWebhookSink(t, http.StatusNoContent)
	f := newFixture(t, sink.URL)

	r := httptest.NewRequest(http.MethodPost, "/api/submit/checkin", strings.NewReader(`{"hours":5}`))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(sessionCookie(t, testSecret))
	rec := f.do(r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	calls := sink.calls()
	require.Len(t, calls, 1)
	require.Equal(t, "ERG checkin submission", calls[0]["content"])
	e := calls[0]["embeds"].([]any)[0].(map[string]any)
	require.Equal(t, "ERG Weekly Check-In", e["title"])
	fields := e["fields"].([]any)
	require.Equal(t, "nelly#1337 (80351110224678912)", fields[1].(map[string]any)["value"])
	require.Equal(t, "```json\n{\n  \"hours\": 5\n}\n```", fields[2].(map[string]any)["value"])
}

func TestSubmit_WebhookFailure(t *testing.T) {
	sink := newWebhookSink(t, http.StatusInternalServerError)
	f := newFixture(t, sink.URL)

	r := httptest.NewRequest(http.MethodPost, "/api/submit/checkin", strings.NewReader(`{"hours":5}`))
	r.AddCookie(sessionCookie(t, testSecret))
	rec := f.do(r)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"ok":false,"status":500}`, rec.Body.String())
}

func TestSubmit_NoWebhookConfigured(t *testing.T) {
	f := newFixture(t, "")

	r := httptest.NewRequest(http.MethodPost, "/api/submit/training", strings.NewReader(`{}`))
	r.AddCookie(sessionCookie(t, testSecret))
	rec := f.do(r)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"ok":false,"reason":"No webhook configured"}`, rec.Body.String())
}

func TestSubmit_BodyFallsBackToEmptyObject(t *testing.T) {
	tests := map[string]string{
		"invalid json": `{"hours":`,
		"empty":        ``,
		"scalar":       `42`,
		"null":         `null`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			sink := newWebhookSink(t, http.StatusOK)
			f := newFixture(t, sink.URL)

			r := httptest.NewRequest(http.MethodPost, "/api/submit/promotion", strings.NewReader(body))
			r.AddCookie(sessionCookie(t, testSecret))
			rec := f.do(r)
			require.Equal(t, http.StatusOK, rec.Code)

			calls := sink.calls()
			require.Len(t, calls, 1)
			data := calls[0]["embeds"].([]any)[0].(map[string]any)["fields"].([]any)[2].(map[string]any)["value"]
			require.Equal(t, "```json\n{}\n```", data)
		})
	}
}

func TestSubmit_BodyTooLarge(t *testing.T) {
	sink := newWebhookSink(t, http.StatusOK)
	f := newFixture(t, sink.URL)

	big := `{"notes":"` + strings.Repeat("a", 2<<20) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/api/submit/application", strings.NewReader(big))
	r.AddCookie(sessionCookie(t, testSecret))
	rec := f.do(r)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, sink.calls())
}

func TestSubmit_UnknownKind(t *testing.T) {
	f := newFixture(t, "")
	r := httptest.NewRequest(http.MethodPost, "/api/submit/leave", strings.NewReader(`{}`))
	r.AddCookie(sessionCookie(t, testSecret))
	rec := f.do(r)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sessions.CookieName, cookies[0].Name)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestStaticFiles(t *testing.T) {
	f := newFixture(t, "")

	t.Run("index", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		require.Contains(t, string(body), "ERG Tracking")
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	})

	t.Run("client route falls back to index", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/checkin", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "ERG Tracking")
	})

	t.Run("unknown api path is not the index", func(t *testing.T) {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
