package main

import (
	"log"
	"os"

	"corevai-be/internal/constant"
	"corevai-be/internal/model"
	"corevai-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a demo account with a project and a short conversation so the
// frontend has something to render on a fresh database.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	email := "demo@corevai.local"

	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("%s User '%s' already exists, nothing to do", yellow("SKIP"), email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Error: Failed to hash demo password:", err)
	}
	hashStr := string(hash)

	user := model.User{
		Email:        email,
		PasswordHash: &hashStr,
		Name:         "Demo User",
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatal("Error: Failed to create demo user:", err)
	}
	log.Printf("%s Created user %s (%s)", green("OK"), user.Name, user.Email)

	project := model.Project{
		OwnerId: user.Id,
		Name:    "Getting Started",
	}
	if err := db.Create(&project).Error; err != nil {
		log.Fatal("Error: Failed to create demo project:", err)
	}
	log.Printf("%s Created project %s", green("OK"), project.Name)

	title := "Welcome to CoreVAI"
	conversation := model.Conversation{
		OwnerId:   &user.Id,
		ProjectId: &project.Id,
		Title:     &title,
	}
	if err := db.Create(&conversation).Error; err != nil {
		log.Fatal("Error: Failed to create demo conversation:", err)
	}

	messages := []model.Message{
		{ConversationId: conversation.Id, Role: constant.MessageRoleUser, Content: "What can you help me with?"},
		{ConversationId: conversation.Id, Role: constant.MessageRoleAssistant, Content: "I can answer questions, draft text and keep the thread organized in projects. Ask me anything to get started."},
	}
	for _, m := range messages {
		msg := m
		if err := db.Create(&msg).Error; err != nil {
			log.Fatal("Error: Failed to create demo message:", err)
		}
	}
	log.Printf("%s Created conversation '%s' with %d messages", green("OK"), title, len(messages))

	log.Println(green("✅ Seeding completed"))
}
