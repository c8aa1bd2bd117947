// Package server exposes the form-filling sessions over a REST API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tributolabs/formfill/internal/canonical"
	"github.com/tributolabs/formfill/internal/config"
	"github.com/tributolabs/formfill/internal/form"
	"github.com/tributolabs/formfill/internal/i18n"
	"github.com/tributolabs/formfill/internal/session"
	"github.com/tributolabs/formfill/internal/storage"
	"github.com/tributolabs/formfill/internal/store"
)

// FilledSink persists flattened output and hands out presigned download
// links. The S3 template store implements it; the directory store does not.
type FilledSink interface {
	UploadFilled(key string, data []byte) error
	PresignedURL(key string, expiry time.Duration) (string, error)
}

// Server wires the session manager, the form store and the template source
// behind the HTTP handlers.
type Server struct {
	cfg       *config.Config
	sessions  *session.Manager
	templates storage.TemplateSource
	filled    FilledSink    // nil when the template source cannot persist output
	forms     *store.Store  // nil when no database is configured
	tokens    *TokenService // nil disables bearer-token checking

	httpServer *http.Server
}

// New creates a server. forms and a JWT secret are optional.
func New(cfg *config.Config, sessions *session.Manager, templates storage.TemplateSource, forms *store.Store) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		templates: templates,
		forms:     forms,
	}
	if sink, ok := templates.(FilledSink); ok {
		s.filled = sink
	}
	if cfg.JWTSecret != "" {
		s.tokens = NewTokenService(cfg.JWTSecret)
	}
	return s
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if s.cfg.IsDebug() {
		r.Use(gin.Logger())
	}
	r.Use(CORS(DefaultCORSConfig()))

	general := NewRateLimiter(120, time.Minute)
	uploads := NewRateLimiter(20, time.Minute)
	chat := NewRateLimiter(60, time.Minute)

	api := r.Group("/api", general.Limit())
	{
		api.GET("/health", s.handleHealth)
		api.GET("/forms", s.handleListForms)
		api.GET("/forms/:id", s.handleGetForm)
		api.PUT("/forms/:id", s.RequireAuth(), s.handleSaveForm)

		api.POST("/sessions", s.handleCreateSession)

		sess := api.Group("/sessions/:id")
		{
			sess.GET("/catalog", s.handleCatalog)
			sess.GET("/values", s.handleGetValues)
			sess.PATCH("/values", s.handlePatchValues)
			sess.POST("/upload", uploads.Limit(), s.handleUpload)
			sess.POST("/dialogue", chat.Limit(), s.handleDialogue)
			sess.GET("/transcript", s.handleTranscript)
			sess.GET("/preview", s.handlePreview)
			sess.GET("/download", s.handleDownload)
			sess.DELETE("", s.handleDeleteSession)
		}

		progress := api.Group("/progress", s.RequireAuth())
		{
			progress.PUT("/:formID", s.handleSaveProgress)
			progress.GET("/:formID", s.handleLoadProgress)
			progress.DELETE("/:formID", s.handleDeleteProgress)
		}
	}

	return r
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving HTTP on %s", s.cfg.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// listForms returns the known form configurations, from the database when
// one is configured and otherwise by scanning the template directory.
func (s *Server) listForms() ([]form.FormConfig, error) {
	if s.forms != nil {
		return s.forms.ListForms()
	}
	return s.scanTemplateDirectory()
}

// getForm resolves one form configuration by id.
func (s *Server) getForm(id string) (*form.FormConfig, error) {
	if s.forms != nil {
		return s.forms.GetForm(id)
	}
	configs, err := s.scanTemplateDirectory()
	if err != nil {
		return nil, err
	}
	for i := range configs {
		if configs[i].ID == id {
			return &configs[i], nil
		}
	}
	return nil, fmt.Errorf("unknown form: %s", id)
}

func (s *Server) scanTemplateDirectory() ([]form.FormConfig, error) {
	entries, err := os.ReadDir(s.cfg.TemplateDirectory)
	if err != nil {
		return nil, fmt.Errorf("cannot read template directory: %w", err)
	}

	var configs []form.FormConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		configs = append(configs, form.FormConfig{
			ID:           stem,
			Name:         canonical.ReadableLabel(stem),
			PDFObjectKey: entry.Name(),
		})
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].ID < configs[j].ID })
	return configs, nil
}

// requestLanguage picks the response language from the lang query parameter
// or the Accept-Language header.
func requestLanguage(c *gin.Context) string {
	if lang := c.Query("lang"); lang == i18n.LangEnglish || lang == i18n.LangSpanish {
		return lang
	}
	return i18n.MatchLanguage(c.GetHeader("Accept-Language"))
}
