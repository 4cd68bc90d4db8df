// Package discordfake is an in-process stand-in for Discord's OAuth2 and
// users API, used by tests.
package discordfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

const (
	ValidCode   = "valid-code"
	AccessToken = "fake-access-token"
)

// Provider records the token form it received and answers with canned data.
type Provider struct {
	*httptest.Server

	mu            sync.Mutex
	tokenForm     url.Values
	authHdr       string
	profileStatus int
	profile       map[string]any
}

func New() *Provider {
	p := &Provider{
		profileStatus: http.StatusOK,
		profile: map[string]any{
			"id":            "80351110224678912",
			"username":      "nelly",
			"discriminator": "1337",
			"avatar":        "8342729096ea3675442027381ff50dfe",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/oauth2/token", p.token)
	mux.HandleFunc("GET /api/users/@me", p.me)
	p.Server = httptest.NewServer(mux)
	return p
}

func (p *Provider) AuthURL() string    { return p.URL + "/oauth2/authorize" }
func (p *Provider) TokenURL() string   { return p.URL + "/api/oauth2/token" }
func (p *Provider) APIBaseURL() string { return p.URL + "/api" }

// SetProfileStatus makes GET /users/@me answer with status.
func (p *Provider) SetProfileStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profileStatus = status
}

// SetProfileField overrides one field of the returned profile.
func (p *Provider) SetProfileField(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile[key] = value
}

// TokenForm returns the form body of the last token request.
func (p *Provider) TokenForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenForm
}

// AuthorizationHeader returns the header sent with the last profile request.
func (p *Provider) AuthorizationHeader() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authHdr
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	p.tokenForm = r.PostForm
	p.mu.Unlock()

	if r.PostForm.Get("code") != ValidCode {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid \"code\" in request."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  AccessToken,
		"token_type":    "Bearer",
		"expires_in":    604800,
		"refresh_token": "fake-refresh-token",
		"scope":         "identify",
	})
}

func (p *Provider) me(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.authHdr = r.Header.Get("Authorization")
	status := p.profileStatus
	profile, _ := json.Marshal(p.profile)
	p.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized","code":0}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(profile)
}
