package router

import (
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/handlers"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/middleware"
	"github.com/DanielPESilva/Gerenciamento-de-Estoque-sub002/internal/models"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes sets up the authentication routes.
func SetupAuthRoutes(apiGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	authRoutes := apiGroup.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh-token", authHandler.Refresh)

		authRequiredRoutes := authRoutes.Group("")
		authRequiredRoutes.Use(middleware.AuthMiddleware())
		{
			authRequiredRoutes.GET("/me", authHandler.GetCurrentUser)
		}
	}
}

// SetupItemRoutes sets up the stock item routes, including the direct
// quantity adjustment endpoints.
func SetupItemRoutes(authenticatedGroup *gin.RouterGroup, itemHandler *handlers.ItemHandler) {
	itemRoutes := authenticatedGroup.Group("/items")
	{
		itemRoutes.POST("", itemHandler.CreateItem)
		itemRoutes.GET("", itemHandler.GetItems)
		itemRoutes.GET("/:id", itemHandler.GetItemByID)
		itemRoutes.PUT("/:id", itemHandler.UpdateItem)
		itemRoutes.DELETE("/:id", itemHandler.DeleteItem)

		itemRoutes.POST("/:id/add-quantity", itemHandler.AddQuantity)
		itemRoutes.POST("/:id/remove-quantity", itemHandler.RemoveQuantity)
	}
}

// SetupWriteDownRoutes sets up the write-down routes.
func SetupWriteDownRoutes(authenticatedGroup *gin.RouterGroup, writeDownHandler *handlers.WriteDownHandler) {
	writeDownRoutes := authenticatedGroup.Group("/write-downs")
	{
		writeDownRoutes.POST("", writeDownHandler.CreateWriteDown)
		writeDownRoutes.GET("", writeDownHandler.GetWriteDowns)
		writeDownRoutes.GET("/statistics", writeDownHandler.GetWriteDownStatistics)
		writeDownRoutes.GET("/report", writeDownHandler.GetWriteDownReport)
		writeDownRoutes.GET("/:id", writeDownHandler.GetWriteDownByID)
		writeDownRoutes.PUT("/:id", writeDownHandler.UpdateWriteDown)
		writeDownRoutes.DELETE("/:id", writeDownHandler.DeleteWriteDown)
	}
}

// SetupPurchaseRoutes sets up the purchase routes, including line management
// and finalization.
func SetupPurchaseRoutes(authenticatedGroup *gin.RouterGroup, purchaseHandler *handlers.PurchaseHandler) {
	purchaseRoutes := authenticatedGroup.Group("/purchases")
	{
		purchaseRoutes.POST("", purchaseHandler.CreatePurchase)
		purchaseRoutes.GET("", purchaseHandler.GetPurchases)
		purchaseRoutes.GET("/statistics", purchaseHandler.GetPurchaseStatistics)
		purchaseRoutes.GET("/report", purchaseHandler.GetPurchaseReport)
		purchaseRoutes.GET("/:id", purchaseHandler.GetPurchaseByID)
		purchaseRoutes.DELETE("/:id", purchaseHandler.DeletePurchase)

		purchaseRoutes.POST("/:id/items", purchaseHandler.AddPurchaseItem)
		purchaseRoutes.PUT("/:id/items/:item_id", purchaseHandler.UpdatePurchaseItem)
		purchaseRoutes.DELETE("/:id/items/:item_id", purchaseHandler.RemovePurchaseItem)
		purchaseRoutes.POST("/:id/finalize", purchaseHandler.FinalizePurchase)
	}
}

// SetupClientRoutes sets up the client routes. Destructive client operations
// are limited to admins.
func SetupClientRoutes(authenticatedGroup *gin.RouterGroup, clientHandler *handlers.ClientHandler) {
	clientRoutes := authenticatedGroup.Group("/clients")
	{
		clientRoutes.POST("", clientHandler.CreateClient)
		clientRoutes.GET("", clientHandler.GetClients)
		clientRoutes.GET("/:id", clientHandler.GetClientByID)
		clientRoutes.PUT("/:id", clientHandler.UpdateClient)
		clientRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), clientHandler.DeleteClient)
	}
}
