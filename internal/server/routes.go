package server

import (
	"github.com/h2theoran1984/Spaghetti-990/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Entity graph routes
	apiRoutes.POST("/lookup", routes.PostLookupHandler)
	apiRoutes.GET("/search", routes.GetSearchHandler)

	// Diagnostics routes
	apiRoutes.GET("/debug/connectivity", routes.GetConnectivityHandler)
}
