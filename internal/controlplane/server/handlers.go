package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/freqdash/freqdash/internal/domain"
)

const maxRunsLimit = 500

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, domain.MessageResponse{Message: "Freqtrade UI API"})
}

func (s *Server) handleStrategies(c *gin.Context) {
	out, err := scanStrategies(s.cfg.StrategiesDir)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	status, err := s.fetchStatus(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, domain.Status{Status: status})
}

func (s *Server) handleTrades(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	raw, err := s.exportTrades(ctx)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

type startResponse struct {
	Message        string `json:"message"`
	RunID          string `json:"run_id"`
	PID            int    `json:"pid"`
	AlreadyRunning bool   `json:"already_running,omitempty"`
}

func (s *Server) handleStart(c *gin.Context) {
	var req domain.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	res, err := s.startRun(ctx, req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp := startResponse{Message: "Trading started successfully", RunID: res.Run.ID, AlreadyRunning: res.AlreadyRunning}
	if res.AlreadyRunning {
		resp.Message = "Trading already running"
	}
	if res.Run.PID != nil {
		resp.PID = *res.Run.PID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStop(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.StopTimeout+10*time.Second)
	defer cancel()

	if err := s.stopRun(ctx); err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, domain.MessageResponse{Message: "Trading stopped successfully"})
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	runs, err := s.listRuns(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRun(c *gin.Context) {
	run, err := s.getRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(c, http.StatusNotFound, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}
