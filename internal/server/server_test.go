package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tributolabs/formfill/internal/config"
	"github.com/tributolabs/formfill/internal/form/extract"
	"github.com/tributolabs/formfill/internal/form/pdftest"
	"github.com/tributolabs/formfill/internal/session"
	"github.com/tributolabs/formfill/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TemplateDirectory = t.TempDir()
	cfg.MaxUploadSize = 1 << 20
	cfg.PreviewWindow = 20 * time.Millisecond
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	template := pdftest.Document(
		pdftest.TextField("fullName", "", 2),
		pdftest.TextField("email_address", "", 2),
	)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.TemplateDirectory, "modelo-100.pdf"), template, 0o600))

	sessions := session.NewManager(cfg.PreviewWindow, time.Minute)
	t.Cleanup(sessions.Shutdown)

	srv := New(cfg, sessions, storage.NewDirStore(cfg.TemplateDirectory), nil)
	return srv.Router()
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func createTestSession(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"form_id": "modelo-100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		SessionID string `json:"session_id"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.SessionID)
	return resp.SessionID
}

func TestHealth(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestListFormsFromTemplateDirectory(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodGet, "/api/forms", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Forms []struct {
			ID           string `json:"id"`
			PDFObjectKey string `json:"pdf_object_key"`
		} `json:"forms"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Forms, 1)
	assert.Equal(t, "modelo-100", resp.Forms[0].ID)
	assert.Equal(t, "modelo-100.pdf", resp.Forms[0].PDFObjectKey)
}

func TestGetFormUnknown(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodGet, "/api/forms/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSession(t *testing.T) {
	r := newTestServer(t, testConfig(t))

	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"form_id": "modelo-100"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		SessionID string `json:"session_id"`
		Catalog   struct {
			Fields []struct {
				Name string `json:"name"`
			} `json:"fields"`
		} `json:"catalog"`
		Missing []string `json:"missing_required"`
	}
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.SessionID)
	assert.Len(t, resp.Catalog.Fields, 2)
	assert.Equal(t, []string{"fullName", "email_address"}, resp.Missing)
}

func TestCreateSessionUnknownForm(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"form_id": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionMissingBody(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchValues(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodPatch, "/api/sessions/"+id+"/values", gin.H{
		"values": gin.H{"fullName": "Maria Lopez"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Values  map[string]string `json:"values"`
		Missing []string          `json:"missing_required"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Maria Lopez", resp.Values["fullName"])
	assert.Equal(t, []string{"email_address"}, resp.Missing)
}

func TestSessionNotFound(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodGet, "/api/sessions/nope/catalog", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadExtracts(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	filled := pdftest.Document(pdftest.TextField("fullName", "Maria Lopez", 0))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "filled.pdf")
	require.NoError(t, err)
	_, err = part.Write(filled)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Values  map[string]string `json:"values"`
		Missing []string          `json:"missing_required"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Maria Lopez", resp.Values["fullName"])
	assert.Equal(t, []string{"email_address"}, resp.Missing)
}

func TestUploadRejectsGarbage(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "junk.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a pdf"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDialogueFlow(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)
	path := "/api/sessions/" + id + "/dialogue"

	var resp struct {
		Reply  string            `json:"reply"`
		Done   bool              `json:"done"`
		Values map[string]string `json:"values"`
	}

	w := doJSON(t, r, http.MethodPost, path, gin.H{"message": ""})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Reply)

	w = doJSON(t, r, http.MethodPost, path, gin.H{"message": "english"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Done)

	w = doJSON(t, r, http.MethodPost, path, gin.H{"message": "Maria Lopez"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Maria Lopez", resp.Values["fullName"])

	w = doJSON(t, r, http.MethodPost, path, gin.H{"message": "maria@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.True(t, resp.Done)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Maria Lopez")
}

func TestPreviewAndDownload(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	doJSON(t, r, http.MethodPatch, "/api/sessions/"+id+"/values", gin.H{
		"values": gin.H{"fullName": "Maria Lopez", "email": "maria@example.com"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	preview, err := extract.NewExtractor().Extract(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Maria Lopez", preview.ExtractedData["fullName"])

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	flattened, err := extract.NewExtractor().Extract(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 0, flattened.Catalog.Len())
}

// linkedStore is a template source that can also persist flattened output,
// standing in for the S3 store.
type linkedStore struct {
	*storage.DirStore
	uploaded map[string][]byte
}

func (l *linkedStore) UploadFilled(key string, data []byte) error {
	l.uploaded[key] = data
	return nil
}

func (l *linkedStore) PresignedURL(key string, expiry time.Duration) (string, error) {
	return "https://objects.example.com/" + key + "?signed", nil
}

func TestDownloadLink(t *testing.T) {
	cfg := testConfig(t)
	gin.SetMode(gin.TestMode)

	template := pdftest.Document(pdftest.TextField("fullName", "", 2))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.TemplateDirectory, "modelo-100.pdf"), template, 0o600))

	sessions := session.NewManager(cfg.PreviewWindow, time.Minute)
	t.Cleanup(sessions.Shutdown)

	sink := &linkedStore{
		DirStore: storage.NewDirStore(cfg.TemplateDirectory),
		uploaded: make(map[string][]byte),
	}
	r := New(cfg, sessions, sink, nil).Router()
	id := createTestSession(t, r)

	doJSON(t, r, http.MethodPatch, "/api/sessions/"+id+"/values", gin.H{
		"values": gin.H{"fullName": "Maria Lopez"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/download?link=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		URL       string `json:"url"`
		ExpiresIn int    `json:"expires_in"`
	}
	decode(t, w, &resp)
	assert.Contains(t, resp.URL, "modelo-100-filled.pdf")
	assert.Positive(t, resp.ExpiresIn)

	// The stored copy is the flattened output, not the interactive form.
	require.Len(t, sink.uploaded, 1)
	for _, data := range sink.uploaded {
		flattened, err := extract.NewExtractor().Extract(data)
		require.NoError(t, err)
		assert.Equal(t, 0, flattened.Catalog.Len())
	}
}

func TestDownloadLinkWithoutObjectStorage(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/download?link=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSaveFormWithoutDatabase(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodPut, "/api/forms/modelo-100", gin.H{
		"name":           "Modelo 100",
		"pdf_object_key": "modelo-100.pdf",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDeleteSession(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/sessions/"+id+"/catalog", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProgressWithoutDatabase(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	w := doJSON(t, r, http.MethodPut, "/api/progress/modelo-100", gin.H{
		"values": gin.H{"fullName": "Maria Lopez"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthRequiredWhenSecretConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "test-secret"
	r := newTestServer(t, cfg)

	w := doJSON(t, r, http.MethodGet, "/api/progress/modelo-100", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := NewTokenService(cfg.JWTSecret).GenerateToken("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/progress/modelo-100", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	// Auth passed; only the missing database stops the request.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/progress/modelo-100", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/forms", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
}

func TestSpanishErrorMessages(t *testing.T) {
	r := newTestServer(t, testConfig(t))
	id := createTestSession(t, r)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "junk.pdf")
	_, _ = part.Write([]byte("not a pdf"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload?lang=es", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	english := strings.Contains(strings.ToLower(w.Body.String()), "could not")
	assert.False(t, english, "error should be localized: %s", w.Body.String())
}
