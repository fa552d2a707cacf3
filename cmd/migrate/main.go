package main

import (
	"log"
	"os"

	"corevai-be/internal/model"
	"corevai-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models (The Core Task)
	log.Println("Step 2: Running AutoMigrate for 8 Tables...")

	models := []interface{}{
		&model.User{},
		&model.UserProvider{},
		&model.TwoFactorConfig{},
		&model.BackupCode{},
		&model.Project{},
		&model.Conversation{},
		&model.Message{},
		&model.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Indexes GORM tags don't express
	log.Println("Step 3: Creating supporting indexes...")

	postMigrationSQL := []string{
		// Sidebar ordering scans by owner and recency
		`CREATE INDEX IF NOT EXISTS idx_conversations_owner_recency ON conversations (owner_id, pinned, updated_at DESC) WHERE deleted_at IS NULL;`,

		// Message history is always read per conversation in creation order
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at ASC);`,

		// One provider identity per external account
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_providers_identity ON user_providers (provider_name, provider_user_id);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
