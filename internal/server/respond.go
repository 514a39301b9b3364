package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/intake"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/pricing"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/session"
	"github.com/dharsanguruparan/PrintDrop/internal/signing"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

// First match wins.
var errorMappings = []errorMapping{
	{orders.ErrNoFiles, http.StatusBadRequest, "no_files"},
	{orders.ErrMissingFile, http.StatusBadRequest, "missing_file"},
	{orders.ErrInvalidStatus, http.StatusBadRequest, "invalid_status"},
	{pages.ErrInvalidSelection, http.StatusBadRequest, "invalid_selection"},
	{pricing.ErrInvalidInput, http.StatusBadRequest, "invalid_print_options"},
	{intake.ErrUnsupportedType, http.StatusBadRequest, "unsupported_type"},
	{intake.ErrEmptyFile, http.StatusBadRequest, "empty_file"},
	{intake.ErrPageCount, http.StatusBadRequest, "unreadable_document"},
	{intake.ErrTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{orders.ErrFileInUse, http.StatusConflict, "file_in_use"},
	{repository.ErrNotFound, http.StatusNotFound, "order_not_found"},
	{orders.ErrFileNotInOrder, http.StatusNotFound, "file_not_found"},
	{storage.ErrNotFound, http.StatusNotFound, "file_not_found"},
	{session.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{session.ErrUnknownSession, http.StatusUnauthorized, "unauthorized"},
	{signing.ErrExpired, http.StatusUnauthorized, "link_expired"},
	{signing.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

// respondError maps err onto a status and code. Unexpected errors are logged
// and answered with a generic message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *orders.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, errorBody{
			Error:   "validation_failed",
			Message: "one or more fields are invalid",
			Fields:  ve.Fields,
		})
		return
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		respondJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "file_too_large", Message: err.Error()})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondJSON(w, m.status, errorBody{Error: m.code, Message: err.Error()})
			return
		}
	}
	s.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"})
}

func badRequest(w http.ResponseWriter, code, message string) {
	respondJSON(w, http.StatusBadRequest, errorBody{Error: code, Message: message})
}
