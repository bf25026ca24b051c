package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Retryable bool              `json:"retryable,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteServiceError answers with the envelope for err. Internal errors are
// logged and replaced with a generic message; the cause never reaches the
// client.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := serrors.HTTPStatus(err)
	e, ok := serrors.As(err)
	if !ok || e.Kind == serrors.KindInternal {
		composables.UseLogger(r.Context()).WithError(err).Error("request failed")
		_ = WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	if e.Kind == serrors.KindExternal {
		composables.UseLogger(r.Context()).WithError(err).WithField("retryable", e.Retryable).Warn("upstream failure")
	}
	_ = WriteJSON(w, status, &ErrorEnvelope{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Meta:      e.Fields,
	})
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return serrors.Validation("MALFORMED_BODY", "request body is not valid JSON").Wrap(errors.Wrap(err, "decode body"))
	}
	return nil
}
