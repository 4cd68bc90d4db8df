package sessions

import (
	_ "crypto/sha256" // registers SHA-256 for HS256
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
	"github.com/pkg/errors"
)

var encoding = base64.RawURLEncoding.Strict()

// Codec signs and verifies session tokens of the form
// base64url(JSON(payload)) + "." + base64url(HMAC-SHA256(secret, body)).
// Tokens carry no expiry; the cookie Max-Age is the only lifetime.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		method: jwt.SigningMethodHS256,
	}
}

func (c *Codec) Sign(p Payload) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.Wrap(apperrors.ErrConfigurationMissing, "session secret")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal session payload")
	}
	body := encoding.EncodeToString(raw)

	sig, err := c.method.Sign(body, c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session payload")
	}
	return body + "." + encoding.EncodeToString(sig), nil
}

// Verify returns the payload when the token was signed with this codec's
// secret. The signature is checked in constant time before the body is decoded.
func (c *Codec) Verify(token string) (*Payload, bool) {
	if len(c.secret) == 0 || token == "" {
		return nil, false
	}
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return nil, false
	}
	rawSig, err := encoding.DecodeString(sig)
	if err != nil {
		return nil, false
	}
	if err := c.method.Verify(body, rawSig, c.secret); err != nil {
		return nil, false
	}

	raw, err := encoding.DecodeString(body)
	if err != nil {
		return nil, false
	}
	var p *Payload
	if err := json.Unmarshal(raw, &p); err != nil || p == nil {
		return nil, false
	}
	return p, true
}
