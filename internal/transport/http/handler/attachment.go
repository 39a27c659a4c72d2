package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatrelay/internal/app"
	"chatrelay/internal/transport/http/response"
)

// 32 MiB upload cap; larger files belong in the retrieval store anyway.
const maxUploadBytes = 32 << 20

type AttachmentHandler struct {
	manager *app.Manager
}

func NewAttachmentHandler(manager *app.Manager) *AttachmentHandler {
	return &AttachmentHandler{manager: manager}
}

// Upload accepts one multipart file for a chat. With background=true the
// attachment becomes a chat-level background file; otherwise it stays
// unbound until a later send-message call binds it.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}

	att, err := h.manager.UploadAttachment(app.UploadAttachmentInput{
		ChatID:         chatID,
		Filename:       fileHeader.Filename,
		MimeType:       fileHeader.Header.Get("Content-Type"),
		Data:           data,
		BackgroundFile: c.PostForm("background") == "true",
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "store attachment failed")
		}
		return
	}
	response.OK(c, att)
}

// SyncBackgroundFiles pushes unsynchronized background files into the
// retrieval collection and reports the batch outcome.
func (h *AttachmentHandler) SyncBackgroundFiles(c *gin.Context) {
	chatID, ok := pathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid chat id")
		return
	}

	stats, err := h.manager.SyncBackgroundFiles(c.Request.Context(), chatID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrChatNotFound):
			response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
		case errors.Is(err, app.ErrBackendDisabled):
			response.Error(c, http.StatusConflict, response.CodeBackendDisabled, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
		}
		return
	}
	response.OK(c, stats)
}
