// Package api exposes the generator over HTTP: an HTML form, a JSON API and
// SSE task status streams.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/generator"
	"github.com/cosmos-link/code-agent/internal/metrics"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/cosmos-link/code-agent/internal/session"
	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Options wires the handler's dependencies
type Options struct {
	Generator *generator.Generator
	Tasks     *task.Manager
	SSE       *SSEManager
	Sessions  *session.Manager
	// SessionTTL is used as the session cookie lifetime
	SessionTTL time.Duration
	Persister  *persist.Persister
	// ServerKey reports whether requests without a user key can be served
	ServerKey bool
	Logger    zerolog.Logger
}

// Handler handles HTTP requests
type Handler struct {
	generator  *generator.Generator
	taskMgr    *task.Manager
	sseManager *SSEManager
	sessions   *session.Manager
	sessionTTL time.Duration
	persister  *persist.Persister
	serverKey  bool
	log        zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		generator:  opts.Generator,
		taskMgr:    opts.Tasks,
		sseManager: opts.SSE,
		sessions:   opts.Sessions,
		sessionTTL: opts.SessionTTL,
		persister:  opts.Persister,
		serverKey:  opts.ServerKey,
		log:        opts.Logger,
	}
}

// GenerateRequest is the JSON body of the generate and task endpoints
type GenerateRequest struct {
	Query    string `json:"query"`
	Variant  string `json:"variant"`
	APIKey   string `json:"api_key"`
	RepoName string `json:"repo_name"`
}

// TaskResponse is returned when a task is queued
type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// admit resolves the credential for a request and charges the session
// quota when the server key is used.
func (h *Handler) admit(c *gin.Context, requestKey string) (string, error) {
	key := strings.TrimSpace(requestKey)
	if key == "" {
		key = strings.TrimSpace(c.GetHeader("X-API-Key"))
	}
	s := h.sessions.Get(sessionID(c))
	if key == "" {
		key = s.APIKey
	}

	// Without any key the call fails with a credential error, which is not
	// counted against the quota.
	if key == "" && !h.serverKey {
		return "", nil
	}
	if _, err := h.sessions.Consume(s.ID, key != ""); err != nil {
		metrics.QuotaRejectionsTotal.Inc()
		return "", err
	}
	return key, nil
}

func (h *Handler) bind(c *gin.Context) (GenerateRequest, agent.Variant, bool) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return req, "", false
	}
	variant, err := agent.ParseVariant(req.Variant)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": "bad_request"})
		return req, "", false
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(c, generator.ErrEmptyQuery)
		return req, "", false
	}
	return req, variant, true
}

// HandleGenerate runs a request synchronously
func (h *Handler) HandleGenerate(c *gin.Context) {
	req, variant, ok := h.bind(c)
	if !ok {
		return
	}

	key, err := h.admit(c, req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.generator.Generate(c.Request.Context(), generator.Request{
		Query:   req.Query,
		Variant: variant,
		APIKey:  key,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant": out.Variant,
		"result":  out.Result(),
	})
}

// HandleCreateTask queues a request and returns its task ID
func (h *Handler) HandleCreateTask(c *gin.Context) {
	req, variant, ok := h.bind(c)
	if !ok {
		return
	}

	key, err := h.admit(c, req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}

	t := h.taskMgr.CreateTask(req.Query, string(variant), key, req.RepoName)

	// Subscribe SSE manager to task updates
	if err := h.taskMgr.SubscribeToTask(t.ID, h.sseManager.Broadcast); err != nil {
		h.log.Warn().Err(err).Str("task_id", t.ID).Msg("failed to subscribe to task updates")
	}

	if err := h.taskMgr.Enqueue(t.ID); err != nil {
		if serr := h.taskMgr.SetTaskError(t.ID, err, ""); serr != nil {
			h.log.Warn().Err(serr).Str("task_id", t.ID).Msg("failed to record task error")
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, TaskResponse{
		TaskID:  t.ID,
		Status:  string(t.Status),
		Message: t.Message,
	})
}

// HandleGetTask handles the get task request
func (h *Handler) HandleGetTask(c *gin.Context) {
	taskID := c.Param("task_id")

	t, err := h.taskMgr.GetTask(taskID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, t)
}

// HandleStatus handles the SSE status endpoint
func (h *Handler) HandleStatus(c *gin.Context) {
	HandleSSE(c, h.sseManager, h.taskMgr)
}

// HandleHealth handles health check
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "code-agent",
	})
}

// SetupRouter sets up the Gin router
func SetupRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(handler.log), cors())
	r.SetHTMLTemplate(templates)

	withSession := sessions(handler.sessions, handler.sessionTTL)

	// UI routes
	ui := r.Group("/", withSession)
	{
		ui.GET("/", handler.HandleIndex)
		ui.POST("/", handler.HandleSubmit)
		ui.POST("/download", handler.HandleDownload)
		ui.POST("/session/key", handler.HandleSessionKey)
	}

	// API routes
	api := r.Group("/api/v1", withSession)
	{
		api.POST("/generate", handler.HandleGenerate)
		api.POST("/tasks", handler.HandleCreateTask)
		api.GET("/tasks/:task_id", handler.HandleGetTask)
		api.GET("/tasks/:task_id/events", handler.HandleStatus)
	}

	r.GET("/health", handler.HandleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

// Close stops the SSE event loop
func (h *Handler) Close() {
	h.sseManager.Close()
}
