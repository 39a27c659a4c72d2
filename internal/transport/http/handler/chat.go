package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chatrelay/internal/app"
	"chatrelay/internal/transport/http/response"
)

type ChatHandler struct {
	orchestrator *app.Orchestrator
	manager      *app.Manager
}

func NewChatHandler(orchestrator *app.Orchestrator, manager *app.Manager) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, manager: manager}
}

type CreateChatRequest struct {
	Title        string `json:"title" binding:"max=128"`
	Backend      string `json:"backend" binding:"required"`
	SystemPrompt string `json:"system_prompt"`
	MemoryWindow int    `json:"memory_window"`
	CharLimit    int    `json:"char_limit"`
	RAGEnabled   bool   `json:"rag_enabled"`
	PageContext  bool   `json:"page_context"`
}

type SendMessageRequest struct {
	Content       string `json:"content" binding:"required"`
	AttachmentIDs []uint `json:"attachment_ids"`
	PageText      string `json:"page_text"`
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	chat, err := h.manager.CreateChat(app.CreateChatInput{
		Title:        req.Title,
		Backend:      req.Backend,
		SystemPrompt: req.SystemPrompt,
		MemoryWindow: req.MemoryWindow,
		CharLimit:    req.CharLimit,
		RAGEnabled:   req.RAGEnabled,
		PageContext:  req.PageContext,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrBackendDisabled):
			response.Error(c, http.StatusConflict, response.CodeBackendDisabled, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create chat failed")
		}
		return
	}
	response.OK(c, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.manager.ListChats()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chats failed")
		return
	}
	response.OK(c, chats)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}

	if err := h.manager.DeleteChat(c.Request.Context(), chatID); err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete chat failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing or invalid X-User-ID header")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	answer, err := h.orchestrator.HandleSendMessage(c.Request.Context(), app.SendMessageInput{
		ChatID:        chatID,
		UserID:        userID,
		Text:          req.Content,
		AttachmentIDs: req.AttachmentIDs,
		PageText:      req.PageText,
	}, nil)
	if err != nil {
		writeSendError(c, err)
		return
	}
	response.OK(c, gin.H{"content": answer})
}

// StreamMessage runs the same turn but forwards deltas to the client as
// server-sent events, closing with an event carrying the full text.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing or invalid X-User-ID header")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	full, err := h.orchestrator.HandleSendMessage(c.Request.Context(), app.SendMessageInput{
		ChatID:        chatID,
		UserID:        userID,
		Text:          req.Content,
		AttachmentIDs: req.AttachmentIDs,
		PageText:      req.PageText,
	}, func(delta string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(delta) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(err.Error()) + "\n\n")); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(full) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}
	userID, ok := callerID(c)
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing or invalid X-User-ID header")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.orchestrator.History(c.Request.Context(), chatID, userID, limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get history failed")
		}
		return
	}
	response.OK(c, history)
}

func writeSendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
	case errors.Is(err, app.ErrMessageEmpty), errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrBackendDisabled):
		response.Error(c, http.StatusConflict, response.CodeBackendDisabled, err.Error())
	default:
		response.Error(c, http.StatusBadGateway, response.CodeBackendFailure, err.Error())
	}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

// callerID reads the user identity the fronting gateway injects; this
// service performs no authentication of its own.
func callerID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

func sanitizeSSE(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
