package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/recapcrew/recap-engine/pkg/config"
	pkgjwt "github.com/recapcrew/recap-engine/pkg/jwt"
)

// Mints a development token with membership in one freshly generated project.
// Rename to main and run with `go run scripts/create_dev_token.go` when the
// migrate script is not needed.
func mainn() {
	log.Println("🚀 Creating development token...")

	// Load configuration from .env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	jwtManager := pkgjwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	userID := uuid.New()
	projectID := uuid.New()

	token, err := jwtManager.GenerateToken(userID, "dev@example.com", true, []uuid.UUID{projectID})
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("User ID:    %s\n", userID)
	fmt.Printf("Project ID: %s\n", projectID)
	fmt.Printf("Token:      %s\n", token)
}
