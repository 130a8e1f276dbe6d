package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dompeassist/internal/logger"
	"dompeassist/internal/models"
	"dompeassist/internal/service/assistant"
)

const (
	errMessageRequired = "Message is required"
	errProcessing      = "An error occurred while processing your request."
	errTooManyRequests = "Too many requests, please retry later."
)

// Answerer runs one chat turn.
type Answerer interface {
	Answer(ctx context.Context, message string, history []models.ChatTurn) (*assistant.Answer, error)
}

// Handler wires HTTP routes to the answer pipeline.
type Handler struct {
	pipeline Answerer
	limiter  Limiter
	now      func() time.Time
}

// NewHandler constructs a Handler instance. A nil limiter disables rate limiting.
func NewHandler(pipeline Answerer, limiter Limiter) *Handler {
	return &Handler{pipeline: pipeline, limiter: limiter, now: time.Now}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.health)
	if h.limiter != nil {
		api.POST("/chat", h.rateLimit(), h.chat)
	} else {
		api.POST("/chat", h.chat)
	}
}

type chatRequest struct {
	Message string            `json:"message"`
	History []models.ChatTurn `json:"history"`
}

type chatResponse struct {
	Response     string               `json:"response"`
	SearchResult *models.SearchResult `json:"searchResult"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMessageRequired})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMessageRequired})
		return
	}

	ctx := c.Request.Context()
	log := logger.WithCtx(ctx)
	log.Info("chat request", zap.Int("history", len(req.History)), zap.Int("message_len", len(req.Message)))

	answer, err := h.pipeline.Answer(ctx, req.Message, req.History)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errMessageRequired})
			return
		}
		log.Error("chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errProcessing})
		return
	}

	stages := make([]string, 0, len(answer.Stages))
	for _, s := range answer.Stages {
		stages = append(stages, string(s))
	}
	log.Info("chat answered", zap.Strings("stages", stages), zap.Bool("searched", answer.SearchResult != nil))

	c.JSON(http.StatusOK, chatResponse{
		Response:     answer.Response,
		SearchResult: answer.SearchResult,
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
