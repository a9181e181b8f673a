package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kindredspace/kindred/internal/api/http/converter"
	"github.com/kindredspace/kindred/internal/signaling"
	"github.com/kindredspace/kindred/internal/voicechat"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

type VoiceChatController struct {
	service *voicechat.Service
	relay   *signaling.Relay
	log     *slog.Logger
}

func NewVoiceChatController(service *voicechat.Service, relay *signaling.Relay, log *slog.Logger) *VoiceChatController {
	if log == nil {
		log = slog.Default()
	}
	return &VoiceChatController{service: service, relay: relay, log: log}
}

func (c *VoiceChatController) Register(ctx *gin.Context) {
	type registerRequest struct {
		Tags []string `json:"tags" binding:"required"`
	}
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Tags) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "tags are required"})
		return
	}

	userID, err := c.service.Register(ctx.Request.Context(), strings.Join(req.Tags, ", "))
	if err != nil {
		c.log.Error("voice chat registration failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func (c *VoiceChatController) FindMatch(ctx *gin.Context) {
	type matchRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}
	var req matchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	match, err := c.service.FindMatch(ctx.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, voicechat.ErrUserNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.log.Error("voice chat match failed", slog.String("user_id", req.UserID), sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to find match"})
		return
	}

	if match == nil {
		ctx.JSON(http.StatusOK, gin.H{"matched_user_id": nil})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"matched_user_id":   match.UserID,
		"matched_user_tags": match.Tags,
		"score":             match.Score,
	})
}

// SendSignal stores a signaling envelope for the target and returns the
// sender's own pending envelopes in the same response.
func (c *VoiceChatController) SendSignal(ctx *gin.Context) {
	type signalRequest struct {
		FromUserID string `json:"from_user_id" binding:"required"`
		ToUserID   string `json:"to_user_id" binding:"required"`
		SignalType string `json:"signal_type" binding:"required"`
		SignalData string `json:"signal_data" binding:"required"`
	}
	var req signalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pending := c.relay.Push(req.FromUserID, req.ToUserID, req.SignalType, req.SignalData)

	ctx.JSON(http.StatusOK, gin.H{
		"success":         true,
		"pending_signals": converter.EnvelopesToApi(pending),
	})
}
