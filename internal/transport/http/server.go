package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studymate/internal/bootstrap"
	"studymate/internal/transport/http/handler"
	"studymate/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(app.Logger))
	if cfg.Upload.MaxFileBytes > 0 {
		router.MaxMultipartMemory = cfg.Upload.MaxFileBytes
	}

	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, cfg.Storage.Driver, app.StartedAt, app.HealthChecks())
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(app.Auth)
	libraryHandler := handler.NewLibraryHandler(app.Library, cfg.Upload.MaxFileBytes, cfg.Upload.MaxFilesPerReq)
	var archive handler.ArchiveReader
	if app.Archive != nil {
		archive = app.Archive
	}
	conversationHandler := handler.NewConversationHandler(app.Conversations, archive)
	chatHandler := handler.NewChatHandler(app.Chat, app.Logger)
	renderHandler := handler.NewRenderHandler(app.Render)
	preferenceHandler := handler.NewPreferenceHandler(app.Preferences, app.Capabilities)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	limited := middleware.RateLimitByIP(cfg.Auth.LoginRatePerSec, cfg.Auth.LoginBurst)
	authGroup.POST("/register", limited, authHandler.Register)
	authGroup.POST("/login", limited, authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	api := v1.Group("")
	api.Use(middleware.OptionalAuth(cfg.Auth.JWTSecret, cfg.Auth.AllowGuest))

	api.GET("/categories", libraryHandler.ListCategories)
	api.POST("/categories", libraryHandler.CreateCategory)
	api.PATCH("/categories/:id", libraryHandler.RenameCategory)
	api.DELETE("/categories/:id", libraryHandler.DeleteCategory)
	api.GET("/categories/:id/documents", libraryHandler.ListDocuments)
	api.POST("/categories/:id/documents", libraryHandler.UploadDocuments)
	api.GET("/categories/:id/documents/:name", libraryHandler.DownloadDocument)
	api.DELETE("/categories/:id/documents/:name", libraryHandler.DeleteDocument)

	api.GET("/conversations", conversationHandler.List)
	api.GET("/conversations/:id", conversationHandler.Get)
	api.PATCH("/conversations/:id", conversationHandler.Rename)
	api.DELETE("/conversations/:id", conversationHandler.Delete)
	if archive != nil {
		api.GET("/conversations/:id/archive", conversationHandler.Archive)
	}

	chatGroup := api.Group("/chat")
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.POST("/cancel", chatHandler.Cancel)
	chatGroup.GET("/status", chatHandler.Status)

	api.POST("/render", renderHandler.Render)
	api.GET("/preferences/theme", preferenceHandler.GetTheme)
	api.PUT("/preferences/theme", preferenceHandler.SetTheme)
	api.GET("/capabilities", preferenceHandler.Capabilities)

	return router
}
