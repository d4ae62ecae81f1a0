package server

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/hcpdash/internal/dashboard"
	"github.com/KaramelBytes/hcpdash/internal/filter"
	"github.com/KaramelBytes/hcpdash/internal/ingest"
	"github.com/KaramelBytes/hcpdash/internal/normalize"
	"github.com/KaramelBytes/hcpdash/internal/schema"
	"github.com/KaramelBytes/hcpdash/internal/session"
	"github.com/KaramelBytes/hcpdash/internal/table"
)

const (
	fullExportName     = "hcpdash_normalized_all.csv"
	filteredExportName = "hcpdash_filtered_view.csv"
	csvContentType     = "text/csv; charset=utf-8"
)

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !session.CheckPassword(req.Password, s.opts.Password) {
		log.Warn().Str("path", c.Request.URL.Path).Msg("rejected login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect password. Please try again."})
		return
	}
	// a fresh ID on login so a pre-login cookie cannot be reused
	sess, ok := s.sessions.Rotate(sessionID(c), func(x *session.Session) { x.Authenticated = true })
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired; please retry"})
		return
	}
	c.Set(ctxSessionID, sess.ID)
	setSessionCookie(c, sess.ID)
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (s *Server) logout(c *gin.Context) {
	s.sessions.Delete(sessionID(c))
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds the configured size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	files := make([]ingest.File, 0, len(headers))
	var errs []*ingest.FileError
	for _, h := range headers {
		data, err := readPart(h)
		if err != nil {
			errs = append(errs, &ingest.FileError{Name: h.Filename, Err: err})
			continue
		}
		files = append(files, ingest.File{Name: h.Filename, Data: data})
	}
	raws, readErrs := ingest.ReadAll(files)
	errs = append(errs, readErrs...)
	for _, e := range errs {
		log.Warn().Err(e.Err).Str("file", e.Name).Msg("upload not readable")
	}

	sess, _ := s.sessions.Update(sessionID(c), func(x *session.Session) { x.AddUploads(raws, errs) })
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"files":       sess.Sources(),
		"sheets":      len(raws),
		"errors":      messages,
		"file_errors": sess.FileErrors,
	})
}

func readPart(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) clearUploads(c *gin.Context) {
	s.sessions.Update(sessionID(c), func(x *session.Session) { x.ClearUploads() })
	c.JSON(http.StatusOK, gin.H{"files": []string{}})
}

func (s *Server) columns(c *gin.Context) {
	sess, _ := s.current(c)
	sc, err := schema.Lookup(sess.Schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	keys := make([]gin.H, 0, len(sc.Fields))
	for _, f := range sc.Fields {
		keys = append(keys, gin.H{"key": f.Key, "display": f.Display, "kind": f.Kind.String()})
	}
	c.JSON(http.StatusOK, gin.H{
		"schema":  sc.Name,
		"fields":  keys,
		"columns": normalize.ColumnUniverse(sess.Files),
		"mapping": sess.Mapping.Strings(sc),
	})
}

type mappingRequest struct {
	Schema  string            `json:"schema"`
	Mapping map[string]string `json:"mapping"`
}

func (s *Server) putMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, _ := s.current(c)
	name := sess.Schema
	if req.Schema != "" {
		name = req.Schema
	}
	sc, err := schema.Lookup(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := schema.ParseMapping(sc, req.Mapping)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.sessions.Update(sessionID(c), func(x *session.Session) {
		x.Schema = sc.Name
		x.Mapping = m
	})
	c.JSON(http.StatusOK, gin.H{"schema": sc.Name, "mapping": m.Strings(sc)})
}

type viewRequest struct {
	Schema     string                      `json:"schema"`
	Selections map[string]filter.Selection `json:"selections"`
	Range      *filter.Range               `json:"range"`
	TopN       int                         `json:"top_n"`
}

type viewResponse struct {
	*dashboard.View
	Files      []string `json:"files"`
	FileErrors []string `json:"file_errors,omitempty"`
}

func (s *Server) view(c *gin.Context) {
	v, sess, ok := s.run(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewResponse{View: v, Files: sess.Sources(), FileErrors: sess.FileErrors})
}

func (s *Server) exportFull(c *gin.Context) {
	v, _, ok := s.run(c, false)
	if !ok {
		return
	}
	writeCSV(c, v.Unified, fullExportName)
}

func (s *Server) exportFiltered(c *gin.Context) {
	v, _, ok := s.run(c, true)
	if !ok {
		return
	}
	writeCSV(c, v.Filtered, filteredExportName)
}

// run executes the dashboard pipeline for the caller's session and writes the error
// response itself when it fails. withBody reads selections from the JSON body.
func (s *Server) run(c *gin.Context, withBody bool) (*dashboard.View, session.Session, bool) {
	sess, _ := s.current(c)
	var req viewRequest
	if withBody && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return nil, sess, false
		}
	}
	name := sess.Schema
	if req.Schema != "" {
		name = req.Schema
	}
	sc, err := schema.Lookup(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, sess, false
	}
	if len(sess.Files) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":        "no_uploads",
			"error":       "Upload Excel or CSV files to get started.",
			"file_errors": sess.FileErrors,
		})
		return nil, sess, false
	}
	topN := req.TopN
	if topN <= 0 {
		topN = s.opts.TopN
	}

	v, err := dashboard.Run(sess.Files, dashboard.Params{
		Schema:     sc,
		Mapping:    sess.Mapping,
		Selections: req.Selections,
		Range:      req.Range,
		TopN:       topN,
	})
	if err != nil {
		var missing *normalize.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code":      "missing_columns",
				"error":     err.Error(),
				"missing":   missing.Missing,
				"available": missing.Available,
			})
		case errors.Is(err, normalize.ErrNoUsableData):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code":    "no_usable_data",
				"error":   err.Error(),
				"columns": normalize.ColumnUniverse(sess.Files),
			})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, sess, false
	}
	return v, sess, true
}

func writeCSV(c *gin.Context, t *table.Table, name string) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, csvContentType, buf.Bytes())
}
