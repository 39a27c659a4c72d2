package http

import (
	"github.com/gin-gonic/gin"

	"chatrelay/internal/bootstrap"
	"chatrelay/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app.StartedAt)
	chatHandler := handler.NewChatHandler(app.Orchestrator, app.Manager)
	attachmentHandler := handler.NewAttachmentHandler(app.Manager)
	backendHandler := handler.NewBackendHandler(app.Registry)

	router.GET("/healthz", healthHandler.Check)

	v1 := router.Group("/api/v1")

	v1.GET("/backends", backendHandler.ListBackends)
	v1.GET("/backends/:backend/models", backendHandler.ListModels)

	chats := v1.Group("/chats")
	chats.POST("", chatHandler.CreateChat)
	chats.GET("", chatHandler.ListChats)
	chats.DELETE("/:id", chatHandler.DeleteChat)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.POST("/:id/messages/stream", chatHandler.StreamMessage)
	chats.GET("/:id/history", chatHandler.GetHistory)
	chats.POST("/:id/attachments", attachmentHandler.Upload)
	chats.POST("/:id/rag-sync", attachmentHandler.SyncBackgroundFiles)

	return router
}
