package main

import (
	"log"

	"github.com/Balinti/conversation-tutor-ai/app"
)

func main() {
	app.MustInitDB()
	app.InitStripe()
	app.InitCoach()
	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:8080")
}
