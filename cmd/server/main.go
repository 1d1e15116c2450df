package main

import (
	"log"

	_ "flowboard/docs"
	"flowboard/internal/config"
	"flowboard/internal/server"
)

// @title           Flowboard API
// @version         1.0
// @description     Kanban workflows with drag-and-drop ordering and optimistic sync.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
}
