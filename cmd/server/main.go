package main

import (
	"context"
	"log"
	"net/http"

	"feedback-app/internal/config"
	"feedback-app/internal/handler"
	"feedback-app/internal/middleware"
	"feedback-app/internal/repository"
	"feedback-app/internal/services"
	"feedback-app/internal/utils"
	"feedback-app/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Mongo connection failed:", err)
	}
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})
	db := mongoClient.Database(cfg.MongoDB)

	// Redis, used for the token blacklist. Optional.
	var redisClient *utils.RedisClient
	if cfg.RedisURL != "" {
		redisClient, err = utils.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		shutdownManager.Register(func(ctx context.Context) error {
			log.Println("[SHUTDOWN] Closing Redis connection...")
			return redisClient.Close()
		})
	}

	// Repositories
	userRepo := repository.NewMongoUserRepository(db)
	feedbackRepo := repository.NewMongoFeedbackRepository(db)
	messageRepo := repository.NewMongoMessageRepository(db)

	// Push channel hub
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, jwtUtil, redisClient)
	wsHandler := ws.NewHandler(func(token string) (uint64, string, string, error) {
		user, err := authService.ValidateToken(context.Background(), token)
		if err != nil {
			return 0, "", "", err
		}
		return user.ID, user.Username, user.Role, nil
	})

	// Services
	var mailer services.EmailService
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	feedbackService := services.NewFeedbackService(feedbackRepo, messageRepo, userRepo, wsHandler, mailer)
	messageService := services.NewMessageService(messageRepo, feedbackRepo, userRepo, wsHandler)

	// Handlers
	userHandler := handler.NewUserHandler(authService)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService)
	messageHandler := handler.NewMessageHandler(messageService)
	uploadHandler := handler.NewUploadHandler(cfg.UploadDir)

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	api := router.Group("/api")
	{
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware(authService))

		userHandler.RegisterRoutes(api, authed)
		wsHandler.RegisterRoutes(api)

		feedbackHandler.RegisterRoutes(authed)
		messageHandler.RegisterRoutes(authed)
		authed.POST("/upload/image", uploadHandler.UploadImage)
	}

	router.Static("/static", "./static")

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("feedback server running on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	select {}
}
