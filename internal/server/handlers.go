package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
)

// multipartOverhead leaves room for boundaries and headers around the file
// part.
const multipartOverhead = 64 << 10

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		badRequest(w, "invalid_request_body", "expecting multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, err)
			return
		}
		badRequest(w, "invalid_request_body", "missing file part")
		return
	}
	defer part.Close()

	ref, err := s.uploader.Upload(r.Context(), part.FileName(), part)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"file":  ref,
		"pages": ref.Pages,
	})
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func (s *Server) handleRemoveUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.orders.CheckRemovable(r.Context(), key); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.uploader.Remove(r.Context(), key); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		badRequest(w, "invalid_request_body", err.Error())
		return false
	}
	return true
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req orders.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := s.orders.Quote(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := s.orders.Submit(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	token, expires, err := s.auth.Login(r.Context(), req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expires.UTC(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Check(r.Context(), bearerToken(r)); err != nil {
			s.respondError(w, r, err)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	all, err := s.orders.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	status := model.OrderStatus(r.URL.Query().Get("status"))
	if status != "" {
		if !status.Valid() {
			badRequest(w, "invalid_status", "unknown status filter")
			return
		}
		filtered := make([]model.Order, 0, len(all))
		for _, o := range all {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		all = filtered
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": all})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := s.orders.ChangeStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	file, err := s.orders.StatFile(ctx, r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ttl := s.cfg.SignedURLTTL
	if p, ok := s.files.(Presigner); ok {
		link, err := p.PresignGet(ctx, file.Key, file.Name, ttl)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"url":       link,
			"expiresAt": time.Now().Add(ttl).UTC(),
		})
		return
	}
	link, expires := s.signer.URL("/download", file.Key, ttl)
	respondJSON(w, http.StatusOK, map[string]any{
		"url":       link,
		"expiresAt": expires.UTC(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key, err := s.signer.Verify(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	file, err := s.files.Get(r.Context(), key)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	http.ServeContent(w, r, file.Name, file.UploadedAt, bytes.NewReader(file.Data))
}
