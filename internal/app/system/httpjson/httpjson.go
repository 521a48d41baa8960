// internal/app/system/httpjson/httpjson.go

// Package httpjson holds the small request/response helpers shared by the
// JSON handlers: body decoding with a size cap, response encoding, and the
// mapping from the governance error taxonomy to HTTP statuses.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Decode reads a JSON request body into dst. Returns false after writing a
// 400 response if the body is malformed.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}
	return true
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// BadRequest writes a 400 with a message.
func BadRequest(w http.ResponseWriter, msg string) {
	Write(w, http.StatusBadRequest, errorBody{Error: msg})
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	Write(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Kind: string(apperr.Unauthorized)})
}

// Error maps err onto the taxonomy: kinded errors keep their reason and
// status; mongo.ErrNoDocuments becomes 404; a transaction that lost a write
// race becomes Conflict so the caller knows to re-fetch and retry; anything
// else is a 500 with the detail kept out of the response body.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		Write(w, http.StatusNotFound, errorBody{Error: "not found", Kind: string(apperr.NotFound)})
		return
	}

	if kind := apperr.KindOf(err); kind != "" {
		Write(w, apperr.HTTPStatus(err), errorBody{Error: apperr.ReasonOf(err), Kind: string(kind)})
		return
	}

	if txn.IsConflict(err) {
		Write(w, http.StatusConflict, errorBody{
			Error: "the operation lost a write race; please retry",
			Kind:  string(apperr.Conflict),
		})
		return
	}

	logger.Error("internal error", zap.Error(err))
	Write(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}
