package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/intake"
	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/repository"
	"github.com/dharsanguruparan/PrintDrop/internal/session"
	"github.com/dharsanguruparan/PrintDrop/internal/signing"
	"github.com/dharsanguruparan/PrintDrop/internal/storage"
	"github.com/dharsanguruparan/PrintDrop/internal/testutil"
)

const adminPassword = "letmein"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		MaxFileSize:  4096,
		AllowedTypes: []string{intake.MimePDF, intake.MimeDOCX},
		SignedURLTTL: 5 * time.Minute,
	}
	log := zap.NewNop()
	files := storage.NewMemoryStore()
	repo, err := repository.NewJSONFileRepository(t.TempDir())
	require.NoError(t, err)
	auth, err := session.NewAuthenticator(adminPassword, session.NewMemoryStore(), time.Hour)
	require.NoError(t, err)

	srv := New(cfg, files,
		intake.NewUploader(files, cfg.MaxFileSize, cfg.AllowedTypes, log),
		orders.NewService(repo, files, nil, pages.CountSpan, log),
		auth,
		signing.NewSigner([]byte("test-secret")),
		log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func uploadFile(t *testing.T, ts *httptest.Server, name string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/uploads", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type uploadResponse struct {
	File  model.FileRef `json:"file"`
	Pages int           `json:"pages"`
}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/admin/login", "", map[string]string{"password": adminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[struct {
		Token string `json:"token"`
	}](t, resp)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestUploadValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := uploadFile(t, ts, "notes.pdf", []byte("plain text pretending to be a pdf"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unsupported_type", decode[errorBody](t, resp).Error)

	resp = uploadFile(t, ts, "huge.pdf", bytes.Repeat([]byte("a"), 5000))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "file_too_large", decode[errorBody](t, resp).Error)

	resp, err := http.Post(ts.URL+"/api/uploads", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadAndRemove(t *testing.T) {
	ts := newTestServer(t)
	resp := uploadFile(t, ts, "thesis.pdf", testutil.PDF(3))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	up := decode[uploadResponse](t, resp)
	assert.Equal(t, 3, up.Pages)
	assert.Equal(t, "thesis.pdf", up.File.Name)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/uploads/"+up.File.Key, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/uploads/"+up.File.Key, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/orders", "", map[string]any{
		"fullName": "Grace Hopper", "phoneNumber": "0123456789", "printType": "color",
		"copies": 1, "paperSize": "a4", "printSide": "single", "fileKeys": []string{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no_files", decode[errorBody](t, resp).Error)
}

func TestSubmitValidation(t *testing.T) {
	ts := newTestServer(t)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/orders", "", map[string]any{
		"fullName": "G", "phoneNumber": "123", "printType": "sepia",
		"copies": 0, "paperSize": "a4", "printSide": "single",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorBody](t, resp)
	assert.Equal(t, "validation_failed", body.Error)
	for _, field := range []string{"fullName", "phoneNumber", "printType", "copies"} {
		assert.Contains(t, body.Fields, field)
	}

	resp, err := http.Post(ts.URL+"/api/orders", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request_body", decode[errorBody](t, resp).Error)
}

func TestOrderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	pdf := testutil.PDF(10)
	up := decode[uploadResponse](t, uploadFile(t, ts, "report.pdf", pdf))
	keys := []string{up.File.Key}

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/quote", "", map[string]any{
		"printType": "color", "printSide": "double", "copies": 1, "fileKeys": keys,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	quote := decode[orders.QuoteResult](t, resp)
	assert.InDelta(t, 65.0, quote.Total, 1e-9)
	assert.Equal(t, 10, quote.TotalPages)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/quote", "", map[string]any{
		"printType": "color", "printSide": "double", "copies": 1, "fileKeys": keys, "selectedPages": "11",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_selection", decode[errorBody](t, resp).Error)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/orders", "", map[string]any{
		"fullName": "Grace Hopper", "phoneNumber": "0123456789", "printType": "blackAndWhite",
		"copies": 1, "paperSize": "a4", "printSide": "single", "selectedPages": "all", "fileKeys": keys,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, resp)
	assert.True(t, strings.HasPrefix(order.OrderID, "ORD-"))
	assert.InDelta(t, 15.0, order.TotalCost, 1e-9)
	assert.Equal(t, model.StatusPending, order.Status)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/admin/login", "", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", decode[errorBody](t, resp).Error)

	token := login(t, ts)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[struct {
		Orders []model.Order `json:"orders"`
	}](t, resp)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, order.OrderID, list.Orders[0].OrderID)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/admin/orders/"+order.OrderID+"/status", token, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCompleted, decode[model.Order](t, resp).Status)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/admin/orders/"+order.OrderID+"/status", token, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders?status=pending", token, nil)
	list = decode[struct {
		Orders []model.Order `json:"orders"`
	}](t, resp)
	assert.Empty(t, list.Orders)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders/ORD-0", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders/"+order.OrderID+"/files/"+up.File.Key+"/url", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	link := decode[map[string]string](t, resp)["url"]
	require.True(t, strings.HasPrefix(link, "/download?"))

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/uploads/"+up.File.Key, "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "file_in_use", decode[errorBody](t, resp).Error)

	dl, err := http.Get(ts.URL + link)
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, intake.MimePDF, dl.Header.Get("Content-Type"))
	assert.Contains(t, dl.Header.Get("Content-Disposition"), "report.pdf")
	got, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	resp, err = http.Get(ts.URL + strings.Replace(link, "signature=", "signature=00", 1))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders/"+order.OrderID+"/files/unknown/url", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/admin/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/admin/orders", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/orders", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
