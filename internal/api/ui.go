package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/generator"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// page is the data rendered by index.html
type page struct {
	Query        string
	Code         string
	Language     string
	Filename     string
	Confirmation string
	Error        string
	Raw          string
	Warning      string
	OwnKey       bool
	ServerKey    bool
	Remaining    int
}

func (h *Handler) page(c *gin.Context) page {
	s := h.sessions.Get(sessionID(c))
	return page{
		OwnKey:    s.APIKey != "",
		ServerKey: h.serverKey,
		Remaining: h.sessions.Remaining(s),
	}
}

// HandleIndex renders the empty form
func (h *Handler) HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", h.page(c))
}

// HandleSubmit runs the code variant for the submitted prompt and renders
// the result or the error
func (h *Handler) HandleSubmit(c *gin.Context) {
	query := c.PostForm("query")
	p := h.page(c)
	p.Query = query

	if strings.TrimSpace(query) == "" {
		p.Warning = "Please enter a prompt before generating."
		c.HTML(http.StatusBadRequest, "index.html", p)
		return
	}

	key, err := h.admit(c, "")
	if err != nil {
		h.renderError(c, p, err)
		return
	}

	out, err := h.generator.Generate(c.Request.Context(), generator.Request{
		Query:   query,
		Variant: agent.VariantCode,
		APIKey:  key,
	})
	p = h.refresh(c, p)
	if out != nil && out.Code != nil {
		p.Code = out.Code.Code
		p.Language = out.Code.Language
		p.Filename = out.Code.Filename
	}
	if err != nil {
		if out != nil {
			p.Raw = out.Raw
		}
		h.renderError(c, p, err)
		return
	}

	p.Confirmation = out.Saved.Confirmation
	c.HTML(http.StatusOK, "index.html", p)
}

// refresh reloads the quota fields after a request was charged
func (h *Handler) refresh(c *gin.Context, p page) page {
	fresh := h.page(c)
	p.OwnKey, p.Remaining = fresh.OwnKey, fresh.Remaining
	return p
}

func (h *Handler) renderError(c *gin.Context, p page, err error) {
	e := describe(err)
	p.Error = e.Message
	if e.Raw != "" {
		p.Raw = e.Raw
	}
	h.log.Warn().Err(err).Str("kind", e.Kind).Msg("generation failed")
	c.HTML(e.Status, "index.html", p)
}

// HandleDownload returns the posted code as a file attachment
func (h *Handler) HandleDownload(c *gin.Context) {
	code := c.PostForm("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errNoCode.Error(), "kind": "bad_request"})
		return
	}

	name, err := h.persister.FileName(code, c.PostForm("language"), c.PostForm("filename"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(code))
}

// SessionKeyRequest sets a per-session API key
type SessionKeyRequest struct {
	APIKey string `form:"api_key" json:"api_key"`
}

// HandleSessionKey stores the user's own key for the session. Form posts are
// redirected back to the index page.
func (h *Handler) HandleSessionKey(c *gin.Context) {
	var req SessionKeyRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return
	}

	s := h.sessions.SetKey(sessionID(c), strings.TrimSpace(req.APIKey))

	if c.ContentType() == gin.MIMEJSON {
		c.JSON(http.StatusOK, gin.H{
			"own_key":   s.APIKey != "",
			"remaining": h.sessions.Remaining(s),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

var errNoCode = errors.New("no code to download")
