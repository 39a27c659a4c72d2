package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatrelay/internal/ai"
	"chatrelay/internal/transport/http/response"
)

type BackendHandler struct {
	registry *ai.Registry
}

func NewBackendHandler(registry *ai.Registry) *BackendHandler {
	return &BackendHandler{registry: registry}
}

func (h *BackendHandler) ListBackends(c *gin.Context) {
	response.OK(c, gin.H{
		"available": h.registry.Available(),
		"enabled":   h.registry.Enabled(),
	})
}

func (h *BackendHandler) ListModels(c *gin.Context) {
	backendID := c.Param("backend")
	adapter, ok := h.registry.Create(backendID, "")
	if !ok {
		response.Error(c, http.StatusNotFound, response.CodeBackendDisabled, "unknown or disabled backend")
		return
	}

	models, err := adapter.ListModels(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusBadGateway, response.CodeBackendFailure, err.Error())
		return
	}
	response.OK(c, models)
}
