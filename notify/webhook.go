package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/erg-tracking/sessions"
	"github.com/pkg/errors"
)

const (
	ReasonNoWebhook = "No webhook configured"

	embedColor   = 0x38bdf8
	maxDataChars = 1800
	timeLayout   = "2006-01-02T15:04:05.000Z07:00"
)

// Submission is one authenticated form post. Data is forwarded as-is.
type Submission struct {
	Title string
	Type  string
	User  *sessions.Payload
	Data  json.RawMessage
}

// Result mirrors what the submit endpoints return to the browser.
type Result struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type message struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title     string  `json:"title"`
	Color     int     `json:"color"`
	Fields    []field `json:"fields"`
	Timestamp string  `json:"timestamp"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Forwarder relays submissions to a Discord-style webhook.
type Forwarder struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Forwarder)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Forwarder) { f.httpClient = c }
}

func WithClock(now func() time.Time) Option {
	return func(f *Forwarder) { f.now = now }
}

func NewForwarder(url string, opts ...Option) *Forwarder {
	f := &Forwarder{
		url:        url,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Send posts the submission. A missing URL is reported in the Result without
// any network I/O; transport failures are returned as errors.
func (f *Forwarder) Send(ctx context.Context, s Submission) (Result, error) {
	if f.url == "" {
		return Result{OK: false, Reason: ReasonNoWebhook}, nil
	}

	body, err := json.Marshal(f.buildMessage(s))
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to marshal webhook message")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{OK: false, Status: resp.StatusCode}, nil
	}
	return Result{OK: true}, nil
}

func (f *Forwarder) buildMessage(s Submission) message {
	kind := s.Type
	if kind == "" {
		kind = "-"
	}
	return message{
		Content: "ERG " + s.Type + " submission",
		Embeds: []embed{{
			Title: s.Title,
			Color: embedColor,
			Fields: []field{
				{Name: "Type", Value: kind, Inline: true},
				{Name: "User", Value: s.User.Display(), Inline: true},
				{Name: "Data", Value: "```json\n" + formatData(s.Data) + "\n```"},
			},
			Timestamp: f.now().UTC().Format(timeLayout),
		}},
	}
}

// formatData re-encodes the submission with two-space indent and keeps the
// first maxDataChars characters. Duplicate keys collapse to the last value at
// the first key's position, and numbers are printed in their shortest form.
func formatData(data json.RawMessage) string {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("{}")
	}

	var buf bytes.Buffer
	if normalised, err := normaliseJSON(data); err != nil {
		buf.Write(data)
	} else if err := json.Indent(&buf, normalised, "", "  "); err != nil {
		buf.Reset()
		buf.Write(data)
	}

	out := []rune(buf.String())
	if len(out) > maxDataChars {
		out = out[:maxDataChars]
	}
	return string(out)
}

// orderedObject keeps a JSON object's key order through a decode/encode cycle.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeCompact(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeCompact(&buf, o.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normaliseJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeOrdered(dec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encodeCompact(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCompact(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, float64, bool or nil
	}

	switch delim {
	case '{':
		obj := &orderedObject{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := obj.values[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = value
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			value, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, errors.Errorf("unexpected delimiter %q", delim)
}
