package router

import (
	"database/sql"

	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/handlers"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/middleware"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/repositories"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Initialize Repositories
	authRepo := repositories.NewAuthRepository(db)
	itemRepo := repositories.NewItemRepository(db)
	writeDownRepo := repositories.NewWriteDownRepository(db)
	purchaseRepo := repositories.NewPurchaseRepository(db)
	clientRepo := repositories.NewClientRepository(db)

	// Initialize Services
	authService := services.NewAuthService(authRepo, db)
	itemService := services.NewItemService(itemRepo, db)
	writeDownService := services.NewWriteDownService(writeDownRepo, itemRepo, db)
	purchaseService := services.NewPurchaseService(purchaseRepo, itemRepo, db)
	clientService := services.NewClientService(clientRepo, db)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	itemHandler := handlers.NewItemHandler(itemService)
	writeDownHandler := handlers.NewWriteDownHandler(writeDownService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	clientHandler := handlers.NewClientHandler(clientService)

	apiV1 := engine.Group("/api/v1")

	// Public authentication routes plus the authenticated /auth/me
	SetupAuthRoutes(apiV1, authHandler)

	// Everything else requires a valid token
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())

	SetupItemRoutes(authenticated, itemHandler)
	SetupWriteDownRoutes(authenticated, writeDownHandler)
	SetupPurchaseRoutes(authenticated, purchaseHandler)
	SetupClientRoutes(authenticated, clientHandler)
}
