package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/erg-tracking/internal/errors"
	"github.com/jrsteele09/erg-tracking/notify"
	"github.com/rs/zerolog"
)

// Larger bodies are refused with 413.
const maxSubmissionBytes = 1 << 20

var emptyObject = json.RawMessage("{}")

// submissionKinds maps the {kind} path segment to the notification title.
var submissionKinds = map[string]string{
	"application": "ERG Application",
	"checkin":     "ERG Weekly Check-In",
	"training":    "ERG Training Update",
	"promotion":   "ERG Promotion Request",
}

// SubmissionHandler forwards an authenticated form post to the webhook. It
// expects RequireSession to run first.
func (s *Server) SubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		kind := r.PathValue("kind")
		title, ok := submissionKinds[kind]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": apperrors.ErrUnknownSubmission.Error()})
			return
		}
		user, ok := SessionFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": apperrors.ErrUnauthenticated.Error()})
			return
		}

		data, err := readSubmission(w, r)
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"ok": false, "error": err.Error()})
			return
		}

		result, err := s.forwarder.Send(r.Context(), notify.Submission{
			Title: title,
			Type:  kind,
			User:  user,
			Data:  data,
		})
		if err != nil {
			logger.Err(err).Str("type", kind).Msg("Webhook delivery failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		if !result.OK {
			logger.Warn().Str("type", kind).Int("status", result.Status).Str("reason", result.Reason).Msg("Webhook not delivered")
			writeJSON(w, http.StatusInternalServerError, result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// readSubmission returns the body as JSON. Anything that is not a JSON object
// or array becomes {}; only an oversized body is an error.
func readSubmission(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if apperrors.As(err, &tooLarge) {
			return nil, apperrors.ErrPayloadTooLarge
		}
		return emptyObject, nil
	}
	return normaliseSubmission(body), nil
}

func normaliseSubmission(body []byte) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || (body[0] != '{' && body[0] != '[') || !json.Valid(body) {
		return emptyObject
	}
	return json.RawMessage(body)
}
