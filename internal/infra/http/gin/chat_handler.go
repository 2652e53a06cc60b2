package ginserver

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"datecraft/internal/app/dto"
	chatservice "datecraft/internal/app/services/chat"
	domainchat "datecraft/internal/domain/chat"
)

// ChatHTTP exposes the per-booking conversation endpoints.
type ChatHTTP interface {
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	SetTyping(c *gin.Context)
	ListTypists(c *gin.Context)
	UnreadCount(c *gin.Context)
	Stream(c *gin.Context)
}

type ChatHandler struct {
	Service *chatservice.Service
	Logger  *slog.Logger
}

// ListMessages pages through the ordered log, oldest first. after_seq=0
// starts from the beginning; closed channels stay readable.
func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	afterSeq := parseNonNegativeInt64(c.Query("after_seq"))
	limit := parsePositiveIntStrict(c.Query("limit"), 50)
	messages, err := h.Service.History(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID, afterSeq, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	list := dto.ChatMessageList{Items: make([]dto.ChatMessage, 0, len(messages))}
	for _, m := range messages {
		list.Items = append(list.Items, toMessageDTO(m))
	}
	c.JSON(http.StatusOK, list)
}

func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.Service.Post(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID, req.Content)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageDTO(*msg))
}

// MarkRead is idempotent; the response carries how many messages flipped.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	newlyRead, err := h.Service.MarkRead(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newly_read": newlyRead})
}

func (h ChatHandler) SetTyping(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Typing bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.Service.SetTyping(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID, req.Typing); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) ListTypists(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	typists, err := h.Service.Typists(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"typing": typists})
}

func (h ChatHandler) UnreadCount(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	count, err := h.Service.UnreadCount(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// Stream pushes channel events over SSE until the client disconnects or the
// hub drops a subscriber that stopped reading.
func (h ChatHandler) Stream(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	sub, err := h.Service.Subscribe(c.Request.Context(), domainchat.ChannelID(c.Param("id")), p.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	defer sub.Cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		}
	})
}

func toMessageDTO(m domainchat.Message) dto.ChatMessage {
	return dto.ChatMessage{
		ID:        m.ID,
		ChannelID: string(m.ChannelID),
		SenderID:  m.SenderID,
		Kind:      string(m.Kind),
		Content:   m.Content,
		Seq:       m.Seq,
		CreatedAt: m.CreatedAt,
		Read:      m.Read,
	}
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func parseNonNegativeInt64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
