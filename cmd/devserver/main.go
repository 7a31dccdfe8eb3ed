package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/kdimtricp/streamguard/internal/database"
	"github.com/kdimtricp/streamguard/internal/server"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./streamguard.db"
	}

	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	app := server.NewApp(db)
	if user := os.Getenv("SESSION_USER"); user != "" {
		app.SessionUserID = user
		app.SessionUsername = user
	}
	if role := os.Getenv("SESSION_ROLE"); role != "" {
		app.SessionRole = role
	}

	router := server.NewRouter(app)

	log.Printf("Dev backend starting on port %s", port)
	log.Printf("Database path: %s", dbPath)
	log.Printf("Session user: %s (%s)", app.SessionUsername, app.SessionRole)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}
