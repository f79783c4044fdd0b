package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"recipe-ingest/internal/apperr"
)

type errorBody struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), errorBody{Error: err.Error(), Kind: apperr.KindOf(err)})
}

// decodeJSON rejects unknown fields so client typos surface as 400s.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Newf(apperr.KindValidation, "request body exceeds %d bytes", maxErr.Limit)
		}
		return apperr.Wrap(apperr.KindValidation, "invalid json body", err)
	}
	return nil
}
