package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(auth *Auth, chatController *ChatController, voiceChatController *VoiceChatController) *gin.Engine {
	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	config.AllowCredentials = true
	config.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	router.Use(cors.New(config))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	api.POST("/auth/token", auth.IssueToken)

	chat := api.Group("/chat")
	chat.POST("/match", chatController.FindMatch)
	chat.GET("/ws", chatController.ServeWS)

	authed := chat.Group("")
	authed.Use(auth.Middleware())
	authed.GET("/messages/:sessionID", chatController.GetMessages)
	authed.POST("/search", chatController.SearchMessages)
	authed.POST("/mark-read", chatController.MarkRead)
	authed.GET("/unread", chatController.GetUnread)

	voice := api.Group("/voicechat")
	voice.POST("/register", voiceChatController.Register)
	voice.POST("/match", voiceChatController.FindMatch)
	voice.POST("/signal", voiceChatController.SendSignal)

	return router
}
