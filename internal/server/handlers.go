package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matsen/journalrec/internal/pdf"
	"github.com/matsen/journalrec/internal/pipeline"
)

func (s *Server) handleIndex(c *gin.Context) {
	domains, _, err := s.svc.Domains(c.Request.Context())
	data := newPageData(defaultForm(), domains)
	if err != nil {
		s.log.Warn("loading domains", "error", err)
		data.Error = pipeline.MsgError
	}
	s.render(c, http.StatusOK, data)
}

func (s *Server) handleSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	form, err := parseForm(c)

	domains, _, domErr := s.svc.Domains(ctx)
	if domErr != nil {
		s.log.Warn("loading domains", "error", domErr)
	}
	data := newPageData(form, domains)
	data.Submitted = true
	if err != nil {
		data.Error = err.Error()
		s.render(c, http.StatusBadRequest, data)
		return
	}

	data.Outcome = s.svc.Recommend(ctx, pipeline.Request{
		Title:     form.Title,
		Abstract:  form.Abstract,
		Domains:   form.Domains,
		ImpactMin: pipeline.Impact(form.ImpactMin),
		ImpactMax: pipeline.Impact(form.ImpactMax),
		Indexing:  form.Indexing,
		Count:     form.Count,
	})
	status := http.StatusOK
	if data.Outcome.Status == pipeline.StatusInvalid {
		status = http.StatusBadRequest
	}
	s.render(c, status, data)
}

// parseForm reads the manuscript form. An uploaded PDF fills in a missing
// title or abstract.
func parseForm(c *gin.Context) (formValues, error) {
	form := defaultForm()
	form.Title = c.PostForm("title")
	form.Abstract = c.PostForm("abstract")
	form.Domains = c.PostFormArray("domains")
	form.Indexing = c.PostFormArray("indexing")

	var err error
	if form.ImpactMin, err = parseFloat(c.PostForm("impact_min"), form.ImpactMin); err != nil {
		return form, errors.New("Impact factor min must be a number.")
	}
	if form.ImpactMax, err = parseFloat(c.PostForm("impact_max"), form.ImpactMax); err != nil {
		return form, errors.New("Impact factor max must be a number.")
	}
	if v := c.PostForm("count"); v != "" {
		if form.Count, err = strconv.Atoi(v); err != nil {
			return form, errors.New("Recommendations must be a whole number.")
		}
	}

	fh, err := c.FormFile("manuscript")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return form, nil
	}
	if err != nil {
		return form, errors.New("Could not read the uploaded file.")
	}
	m, err := readManuscript(fh)
	if err != nil {
		return form, errors.New("Could not extract text from the uploaded PDF.")
	}
	if form.Title == "" {
		form.Title = m.Title
	}
	if form.Abstract == "" {
		form.Abstract = m.Abstract
	}
	return form, nil
}

func readManuscript(fh *multipart.FileHeader) (*pdf.Manuscript, error) {
	if fh.Size > MaxUploadBytes {
		return nil, fmt.Errorf("upload of %d bytes exceeds limit", fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pdf.ExtractManuscriptReader(f, fh.Size)
}

func parseFloat(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

func (s *Server) render(c *gin.Context, status int, data pageData) {
	body, err := renderPage(data)
	if err != nil {
		s.log.Error("rendering page", "error", err)
		c.String(http.StatusInternalServerError, pipeline.MsgError)
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  pipeline.StatusInvalid,
			"message": "Request body must be a JSON object.",
		})
		return
	}

	out := s.svc.Recommend(c.Request.Context(), req)
	c.JSON(outcomeHTTPStatus(out.Status), out)
}

// outcomeHTTPStatus maps statuses to HTTP codes. Empty-data statuses are
// successful responses that carry an informational message.
func outcomeHTTPStatus(s pipeline.Status) int {
	switch s {
	case pipeline.StatusInvalid:
		return http.StatusBadRequest
	case pipeline.StatusError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (s *Server) handleDomains(c *gin.Context) {
	domains, warnings, err := s.svc.Domains(c.Request.Context())
	if err != nil {
		s.log.Warn("loading domains", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": pipeline.StatusError, "message": pipeline.MsgError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains, "count": len(domains), "warnings": warnings})
}

type topicsRequest struct {
	Text string `json:"text" binding:"required"`
	TopK int    `json:"top_k"`
}

func (s *Server) handleTopics(c *gin.Context) {
	var req topicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": pipeline.StatusInvalid, "message": "Field \"text\" is required."})
		return
	}
	res := s.svc.Topics(c.Request.Context(), req.Text, req.TopK)
	phrases := res.Phrases
	if phrases == nil {
		phrases = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"topics": phrases, "fallback": res.Fallback})
}

func (s *Server) handleRebuild(c *gin.Context) {
	info, err := s.svc.Rebuild(c.Request.Context())
	if err != nil {
		s.log.Warn("rebuild failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": pipeline.StatusError, "message": pipeline.MsgError})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleHealth(c *gin.Context) {
	info := s.svc.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"ready":    info.Ready,
		"journals": info.Journals,
		"indexed":  info.Indexed,
		"model":    info.Model,
	})
}
