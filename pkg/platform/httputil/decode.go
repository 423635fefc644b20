package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "credstore/pkg/domain-errors"
	"credstore/pkg/requestcontext"
)

const (
	InvalidBodyMessage  = "Invalid request body"
	BodyTooLargeMessage = "Request body too large"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// Decode reads exactly one JSON value from r into a T. Bodies cut off by
// http.MaxBytesReader come back as a CodePayloadTooLarge domain error; every
// other failure is returned unwrapped.
func Decode[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, classify(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return out, classify(err)
	}
	return out, nil
}

func classify(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return dErrors.Wrap(err, dErrors.CodePayloadTooLarge, BodyTooLargeMessage)
	}
	return err
}

// DecodeJSON decodes the request body into a T. On failure it logs, writes
// the error response and returns false. Malformed bodies are answered with
// failCode so callers choose between 400 and 422.
//
//	cred, ok := httputil.DecodeJSON[models.Credential](w, r, logger, dErrors.CodeBadRequest)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, failCode dErrors.Code) (T, bool) {
	out, err := Decode[T](r.Body)
	if err == nil {
		return out, true
	}

	ctx := r.Context()
	logger.WarnContext(ctx, "failed to decode request body",
		"error", err,
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
	)
	if dErrors.HasCode(err, dErrors.CodePayloadTooLarge) {
		WriteError(w, err)
	} else {
		WriteError(w, dErrors.Wrap(err, failCode, InvalidBodyMessage))
	}
	return out, false
}
