package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"matricula_app_echo/internal/services"
)

func main() {
	phone := flag.String("phone", "", "Phone number (e.g. 987654321 or 51987654321)")
	msg := flag.String("msg", "Test message from WahaService", "Message body")
	flag.Parse()

	if *phone == "" {
		log.Fatal("Please provide a phone number using -phone flag")
	}

	// Load envs
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found")
	}

	service := services.NewWahaService()

	chatID := services.NormalizeChatID(*phone)
	log.Printf("Sending message to %s: %s", chatID, *msg)

	if err := service.SendMessage(chatID, *msg); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	log.Println("Message sent successfully!")
}
