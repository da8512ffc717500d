package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lifehubapp/lifehub/internal/backend"
	"github.com/lifehubapp/lifehub/internal/handlers"
	"github.com/lifehubapp/lifehub/internal/live"
	"github.com/lifehubapp/lifehub/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		log.Fatal("GOOGLE_CLOUD_PROJECT environment variable is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// Optional; when empty, Google sign-in accepts any audience.
	googleAudience := os.Getenv("GOOGLE_OAUTH_AUDIENCE")

	ctx := context.Background()
	store, err := backend.NewFirestoreStore(ctx, projectID)
	if err != nil {
		log.Fatalf("Failed to create Firestore store: %v", err)
	}
	defer store.Close()

	engine := live.NewEngine(store)

	users := session.NewFirestoreUserStore(store.Client())
	sessions := session.NewService(users, googleAudience)
	tokens := session.NewTokenService(jwtSecret)

	// Subscriptions of a signed-out owner must not keep delivering.
	unbind := engine.BindSession(sessions)
	defer unbind()

	authHandler := handlers.NewAuthHandler(sessions, tokens)
	collectionHandler := handlers.NewCollectionHandler(
		live.NewTodoStore(engine),
		live.NewHabitStore(engine),
		live.NewNoteStore(engine),
	)
	streamHandler := handlers.NewStreamHandler(engine)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handlers.Register(e, authHandler, collectionHandler, streamHandler, tokens)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
