package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentrelay/relay/internal/app/handoffaccept"
	"github.com/agentrelay/relay/internal/app/handoffinit"
	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/model"
)

type createTaskRequest struct {
	Title            string   `json:"title" binding:"required"`
	Description      string   `json:"description"`
	TargetRepo       string   `json:"targetRepo"`
	TargetBranch     string   `json:"targetBranch"`
	StateRepo        string   `json:"stateRepo"`
	IssueNumber      int      `json:"issueNumber"`
	WorkingDir       string   `json:"workingDir"`
	AllowedAgents    []string `json:"allowedAgents"`
	RequiresApproval bool     `json:"requiresApproval"`
}

func (r *Router) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.abortWithError(c, fmt.Errorf("invalid request body (%v): %w", err, model.ErrNotValid))
		return
	}

	task, err := r.cfg.TaskCreate.Run(c.Request.Context(), taskcreate.Request{
		Title:       req.Title,
		Description: req.Description,
		GitHub: model.GitHubRef{
			TargetRepo:   req.TargetRepo,
			TargetBranch: req.TargetBranch,
			StateRepo:    req.StateRepo,
			IssueNumber:  req.IssueNumber,
		},
		Creator:          identityFrom(c),
		WorkingDir:       req.WorkingDir,
		AllowedAgents:    req.AllowedAgents,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (r *Router) listTasks(c *gin.Context) {
	summaries, err := r.cfg.TaskStatus.List(c.Request.Context())
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (r *Router) getTask(c *gin.Context) {
	task, err := r.cfg.TaskStatus.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

type runTurnRequest struct {
	AdditionalInstructions string `json:"additionalInstructions"`
}

func (r *Router) runTurn(c *gin.Context) {
	var req runTurnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			r.abortWithError(c, fmt.Errorf("invalid request body (%v): %w", err, model.ErrNotValid))
			return
		}
	}

	result, err := r.cfg.TaskRun.Run(c.Request.Context(), taskrun.Request{
		TaskID:                 c.Param("id"),
		Agent:                  identityFrom(c),
		AdditionalInstructions: req.AdditionalInstructions,
	})
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":  result.Task,
		"text":  result.Text,
		"error": result.Err,
	})
}

type initiateHandoffRequest struct {
	Reason       string `json:"reason" binding:"required"`
	Instructions string `json:"instructions"`
}

func (r *Router) initiateHandoff(c *gin.Context) {
	var req initiateHandoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.abortWithError(c, fmt.Errorf("invalid request body (%v): %w", err, model.ErrNotValid))
		return
	}

	task, err := r.cfg.HandoffInit.Run(c.Request.Context(), handoffinit.Request{
		TaskID:       c.Param("id"),
		Agent:        identityFrom(c),
		Reason:       req.Reason,
		Instructions: req.Instructions,
	})
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

func (r *Router) acceptHandoff(c *gin.Context) {
	task, err := r.cfg.HandoffAccept.Run(c.Request.Context(), handoffaccept.Request{
		TaskID: c.Param("id"),
		Agent:  identityFrom(c),
	})
	if err != nil {
		r.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
