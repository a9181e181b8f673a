package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kindredspace/kindred/internal/api/http/converter"
	"github.com/kindredspace/kindred/internal/archive"
	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/hub"
	"github.com/kindredspace/kindred/internal/matching"
	"github.com/kindredspace/kindred/lib/logger/sl"
)

// Matcher is the pairing engine surface the controller depends on.
type Matcher interface {
	RequestMatch(ctx context.Context, description string, interests []string, ageRange string) (*matching.Result, error)
}

// MessageStore serves history, search, unread, and read-state.
type MessageStore interface {
	ListForSession(ctx context.Context, sessionID string) ([]*domain.Message, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*domain.Message, error)
	ListUnread(ctx context.Context, userID string) ([]*domain.Message, error)
	MarkRead(ctx context.Context, userID string, messageIDs []string) error
}

type ChatController struct {
	matcher  Matcher
	messages MessageStore
	hub      *hub.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewChatController(matcher Matcher, messages MessageStore, h *hub.Hub, log *slog.Logger) *ChatController {
	if log == nil {
		log = slog.Default()
	}
	return &ChatController{
		matcher:  matcher,
		messages: messages,
		hub:      h,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (c *ChatController) FindMatch(ctx *gin.Context) {
	type matchRequest struct {
		Description string   `json:"description" binding:"required"`
		Interests   []string `json:"interests"`
		AgeRange    string   `json:"age_range"`
	}
	var req matchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := c.matcher.RequestMatch(ctx.Request.Context(), req.Description, req.Interests, req.AgeRange)
	if err != nil {
		c.log.Error("match request failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"match_found": false,
			"message":     "Error finding match",
		})
		return
	}

	if result.Matched {
		ctx.JSON(http.StatusOK, gin.H{
			"match_found": true,
			"session_id":  result.SessionID,
			"partner_id":  result.PartnerID,
			"user_id":     result.ProfileID,
			"message":     "Match found! You can start chatting.",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"match_found": false,
		"user_id":     result.ProfileID,
		"message":     "No immediate match found. You've been added to the waiting queue.",
	})
}

// ServeWS upgrades the request and hands the connection to the hub. The
// participant id arrives already resolved.
func (c *ChatController) ServeWS(ctx *gin.Context) {
	userID := ctx.Query("user_id")
	if userID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("websocket upgrade failed", sl.Err(err))
		return
	}

	c.hub.Accept(userID, conn)
}

// GetMessages returns a session's history and marks the returned unread
// messages as read by the caller.
func (c *ChatController) GetMessages(ctx *gin.Context) {
	sessionID := ctx.Param("sessionID")
	userID := callerID(ctx)

	messages, err := c.messages.ListForSession(ctx.Request.Context(), sessionID)
	if err != nil {
		c.log.Error("message listing failed", slog.String("session_id", sessionID), sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}

	var unreadIDs []string
	for _, m := range messages {
		if !m.IsReadBy(userID) {
			unreadIDs = append(unreadIDs, m.ID)
		}
	}
	if len(unreadIDs) > 0 {
		if err := c.messages.MarkRead(ctx.Request.Context(), userID, unreadIDs); err != nil {
			c.log.Warn("implicit mark-read failed", slog.String("session_id", sessionID), sl.Err(err))
		}
	}

	ctx.JSON(http.StatusOK, converter.MessagesToApi(messages))
}

func (c *ChatController) SearchMessages(ctx *gin.Context) {
	type searchRequest struct {
		Query string `json:"query" binding:"required"`
		Limit int    `json:"limit"`
	}
	var req searchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	messages, err := c.messages.Search(ctx.Request.Context(), callerID(ctx), req.Query, req.Limit)
	if err != nil {
		c.log.Error("message search failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search messages"})
		return
	}

	ctx.JSON(http.StatusOK, converter.MessagesToApi(messages))
}

func (c *ChatController) MarkRead(ctx *gin.Context) {
	type markReadRequest struct {
		MessageIDs []string `json:"message_ids" binding:"required"`
	}
	var req markReadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := c.messages.MarkRead(ctx.Request.Context(), callerID(ctx), req.MessageIDs); err != nil {
		if errors.Is(err, archive.ErrMessageNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.log.Error("mark-read failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages as read"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (c *ChatController) GetUnread(ctx *gin.Context) {
	messages, err := c.messages.ListUnread(ctx.Request.Context(), callerID(ctx))
	if err != nil {
		c.log.Error("unread listing failed", sl.Err(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unread messages"})
		return
	}

	ctx.JSON(http.StatusOK, converter.MessagesToApi(messages))
}
