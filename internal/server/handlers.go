package server

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tributolabs/formfill/internal/form"
	"github.com/tributolabs/formfill/internal/form/extract"
	"github.com/tributolabs/formfill/internal/i18n"
	"github.com/tributolabs/formfill/internal/session"
)

type createSessionRequest struct {
	FormID string `json:"form_id" binding:"required"`
}

type sessionResponse struct {
	SessionID string                `json:"session_id"`
	Form      *form.FormConfig      `json:"form"`
	Catalog   *form.Catalog         `json:"catalog"`
	Values    form.ValueSet         `json:"values"`
	Missing   []string              `json:"missing_required"`
	Hint      string                `json:"hint,omitempty"`
	Patterns  *extract.PatternHints `json:"pattern_hints,omitempty"`
}

type valuesRequest struct {
	Values form.ValueSet `json:"values" binding:"required"`
}

type valuesResponse struct {
	Values  form.ValueSet `json:"values"`
	Missing []string      `json:"missing_required"`
}

type dialogueRequest struct {
	Message string `json:"message"`
}

type dialogueResponse struct {
	Reply  string        `json:"reply"`
	Done   bool          `json:"done"`
	Values form.ValueSet `json:"values"`
}

type progressRequest struct {
	Values   form.ValueSet `json:"values" binding:"required"`
	Language string        `json:"language"`
}

// downloadLinkExpiry bounds how long a presigned download URL stays valid.
const downloadLinkExpiry = 15 * time.Minute

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    s.cfg.ServerName,
		"version": s.cfg.Version,
	})
}

func (s *Server) handleListForms(c *gin.Context) {
	configs, err := s.listForms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if configs == nil {
		configs = []form.FormConfig{}
	}
	c.JSON(http.StatusOK, gin.H{"forms": configs})
}

func (s *Server) handleGetForm(c *gin.Context) {
	cfg, err := s.getForm(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown form: %s", c.Param("id"))})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleSaveForm(c *gin.Context) {
	if s.forms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "form storage is not configured"})
		return
	}
	var cfg form.FormConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "form configuration body is required"})
		return
	}
	cfg.ID = c.Param("id")
	if cfg.Name == "" || cfg.PDFObjectKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and pdf_object_key are required"})
		return
	}
	if err := s.forms.SaveForm(&cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "form_id is required"})
		return
	}
	lang := requestLanguage(c)

	cfg, err := s.getForm(req.FormID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown form: %s", req.FormID)})
		return
	}

	template, err := s.templates.FetchTemplate(cfg.PDFObjectKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess, err := s.sessions.Create(cfg, template)
	if err != nil {
		if errors.Is(err, extract.ErrNotPDF) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": i18n.T(lang, "form.parseError")})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := sessionResponse{
		SessionID: sess.ID,
		Form:      sess.Form,
		Catalog:   sess.Catalog(),
		Values:    sess.Values(),
		Missing:   missingNames(sess),
	}

	// A field-less document may still be a form that was scanned or
	// flattened; tell the caller what the page text suggests.
	if resp.Catalog.Len() == 0 {
		hints := extract.SniffFieldPatterns(template)
		resp.Patterns = &hints
		if hints.LooksLikeForm() {
			resp.Hint = i18n.T(lang, "form.looksLikeFlatForm")
		} else {
			resp.Hint = i18n.T(lang, "form.noFieldsFound")
		}
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleCatalog(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Catalog())
}

func (s *Server) handleGetValues(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, valuesResponse{Values: sess.Values(), Missing: missingNames(sess)})
}

func (s *Server) handlePatchValues(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req valuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "values object is required"})
		return
	}
	sess.SetValues(req.Values)
	c.JSON(http.StatusOK, valuesResponse{Values: sess.Values(), Missing: missingNames(sess)})
}

func (s *Server) handleUpload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	lang := requestLanguage(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	if fileHeader.Size > s.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadSize)})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadSize)})
		return
	}

	result, missing, err := sess.ExtractUpload(data)
	if err != nil {
		if errors.Is(err, extract.ErrNotPDF) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": i18n.T(lang, "form.parseError")})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	messageKey := "form.dataExtracted"
	if len(missing) > 0 {
		messageKey = "form.dataPartiallyExtracted"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          i18n.T(lang, messageKey),
		"extracted_data":   result.ExtractedData,
		"values":           sess.Values(),
		"missing_required": fieldNames(missing),
	})
}

func (s *Server) handleDialogue(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req dialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body is required"})
		return
	}

	var reply string
	var done bool
	if req.Message == "" {
		reply = sess.StartDialogue()
	} else {
		reply, done = sess.DialogueMessage(req.Message)
	}

	c.JSON(http.StatusOK, dialogueResponse{Reply: reply, Done: done, Values: sess.Values()})
}

func (s *Server) handleTranscript(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": sess.Transcript()})
}

func (s *Server) handlePreview(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	lang := requestLanguage(c)
	if err := sess.RenderNow(); err != nil {
		// Last good preview still serves; only fail when there is none.
		if len(sess.Preview()) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": i18n.T(lang, "form.previewError")})
			return
		}
	}
	c.Data(http.StatusOK, "application/pdf", sess.Preview())
}

func (s *Server) handleDownload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	data, err := sess.Download()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if c.Query("link") == "true" {
		s.serveDownloadLink(c, sess, data)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-filled.pdf", sess.Form.ID))
	c.Data(http.StatusOK, "application/pdf", data)
}

// serveDownloadLink stores the flattened copy in the object store and
// answers with a presigned URL instead of the bytes.
func (s *Server) serveDownloadLink(c *gin.Context, sess *session.Session, data []byte) {
	if s.filled == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}
	key := fmt.Sprintf("filled/%s/%s-filled.pdf", sess.ID, sess.Form.ID)
	if err := s.filled.UploadFilled(key, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	url, err := s.filled.PresignedURL(key, downloadLinkExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":        url,
		"expires_in": int(downloadLinkExpiry.Seconds()),
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSaveProgress(c *gin.Context) {
	if s.forms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress storage is not configured"})
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "values object is required"})
		return
	}
	if req.Language == "" {
		req.Language = s.cfg.DefaultLanguage
	}

	userID := c.GetString(userIDKey)
	if err := s.forms.SaveProgress(userID, c.Param("formID"), req.Values, req.Language); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

func (s *Server) handleLoadProgress(c *gin.Context) {
	if s.forms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress storage is not configured"})
		return
	}
	userID := c.GetString(userIDKey)
	p, err := s.forms.LoadProgress(userID, c.Param("formID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no saved progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProgress(c *gin.Context) {
	if s.forms == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "progress storage is not configured"})
		return
	}
	userID := c.GetString(userIDKey)
	if err := s.forms.DeleteProgress(userID, c.Param("formID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// session resolves the :id path parameter, writing the 404 itself when the
// session is gone.
func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func missingNames(sess *session.Session) []string {
	return fieldNames(sess.Catalog().RequiredMissing(sess.Values()))
}

func fieldNames(fields []form.FieldDescriptor) []string {
	names := make([]string, 0, len(fields))
	for _, fd := range fields {
		names = append(names, fd.Name)
	}
	return names
}
