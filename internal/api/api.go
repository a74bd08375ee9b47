// Package api exposes the task coordination operations over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentrelay/relay/internal/app/handoffaccept"
	"github.com/agentrelay/relay/internal/app/handoffinit"
	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/app/taskstatus"
	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
)

// RouterConfig is the configuration for the API router.
type RouterConfig struct {
	TaskCreate     *taskcreate.Service
	TaskRun        *taskrun.Service
	TaskStatus     *taskstatus.Service
	HandoffInit    *handoffinit.Service
	HandoffAccept  *handoffaccept.Service
	TokenValidator *auth.TokenValidator
	Logger         log.Logger
}

func (c *RouterConfig) defaults() error {
	if c.TaskCreate == nil || c.TaskRun == nil || c.TaskStatus == nil ||
		c.HandoffInit == nil || c.HandoffAccept == nil {
		return fmt.Errorf("all services are required")
	}

	if c.TokenValidator == nil {
		return fmt.Errorf("token validator is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.Router"})

	return nil
}

// Router holds the API dependencies and routes.
type Router struct {
	engine *gin.Engine
	cfg    RouterConfig
}

// NewRouter creates a new API router.
func NewRouter(cfg RouterConfig) (*Router, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
	}
	r.engine.Use(gin.Recovery())
	r.setupRoutes()

	return r, nil
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/api/v1", r.authMiddleware())
	{
		tasks := v1.Group("/tasks")
		{
			tasks.GET("", r.listTasks)
			tasks.POST("", r.createTask)
			tasks.GET("/:id", r.getTask)
			tasks.POST("/:id/turns", r.runTurn)
			tasks.POST("/:id/handoff", r.initiateHandoff)
			tasks.POST("/:id/handoff/accept", r.acceptHandoff)
		}
	}
}

// Handler returns the HTTP handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

const identityKey = "agentIdentity"

// authMiddleware validates the bearer token and stores the agent identity on
// the request context.
func (r *Router) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}

		identity, err := r.cfg.TokenValidator.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(identityKey, *identity)
		c.Next()
	}
}

func identityFrom(c *gin.Context) model.AgentIdentity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(model.AgentIdentity)
	return identity
}

// abortWithError maps domain errors onto HTTP responses. Unexpected errors
// become a generic 500 without leaking internals.
func (r *Router) abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotValid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, model.ErrNoHandoff):
		c.JSON(http.StatusConflict, gin.H{"error": "no pending handoff"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry"})
	default:
		r.cfg.Logger.Errorf("Unexpected error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
