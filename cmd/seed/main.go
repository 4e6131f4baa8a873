package main

import (
	"log"
	"os"

	"duelchat/internal/database"
	"duelchat/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// Seeds a local database with a demo user and one answered message.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "duelchat.db"
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	user := domain.User{Email: "demo@example.com", PasswordHash: string(hash)}
	if err := db.Where("email = ?", user.Email).FirstOrCreate(&user).Error; err != nil {
		log.Fatal("seed user failed:", err)
	}

	chat := domain.Chat{UserID: user.ID, Title: "New Chat"}
	if err := db.Where("user_id = ?", user.ID).FirstOrCreate(&chat).Error; err != nil {
		log.Fatal("seed chat failed:", err)
	}

	msg := domain.Message{ChatID: chat.ID, Sender: domain.SenderUser, Content: "What is the capital of France?"}
	if err := db.Create(&msg).Error; err != nil {
		log.Fatal("seed message failed:", err)
	}

	responses := []domain.ModelResponse{
		{MessageID: msg.ID, Model: "gpt-4o-mini", Content: "The capital of France is Paris."},
		{MessageID: msg.ID, Model: "gemini-1.5-flash", Content: "Paris is the capital of France."},
	}
	for i := range responses {
		if err := db.Create(&responses[i]).Error; err != nil {
			log.Fatal("seed response failed:", err)
		}
	}

	if err := db.Create(&domain.Feedback{MessageID: msg.ID, WinnerModel: "gpt-4o-mini"}).Error; err != nil {
		log.Fatal("seed feedback failed:", err)
	}

	log.Printf("seed completed: user=%s chat=%d message=%d", user.Email, chat.ID, msg.ID)
}
