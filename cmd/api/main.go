package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"duelchat/internal/config"
	"duelchat/internal/database"
	"duelchat/internal/llm"
	"duelchat/internal/middleware"
	"duelchat/internal/modules/auth"
	"duelchat/internal/modules/chat"
	"duelchat/internal/modules/feedback"
	jwtsvc "duelchat/internal/pkg/jwt"
	"duelchat/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessTTL)

	authService := auth.NewService(userRepo, j, cfg.RefreshTokenPepper, cfg.RefreshTTL)
	authHandler := auth.NewHandler(authService, cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath, cfg.RefreshTTL)

	providers := []llm.Provider{
		llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel),
		llm.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel),
	}

	chatService := chat.NewService(chatRepo, providers)
	chatHandler := chat.NewHandler(chatService)

	feedbackService := feedback.NewService(chatRepo)
	feedbackHandler := feedback.NewHandler(feedbackService)

	hub := chat.NewHub()
	defer hub.Close()
	wsHandler := chat.NewWSHandler(hub, j, chatService)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			chatHandler.RegisterRoutes(protected)
			feedbackHandler.RegisterRoutes(protected)
		}
	}

	// Realtime gate validates its own token at handshake.
	r.GET("/ws/chat", wsHandler.HandleWebSocket)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
