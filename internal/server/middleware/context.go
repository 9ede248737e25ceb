package middleware

import (
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/h2theoran1984/Spaghetti-990/internal/efts"
	"github.com/h2theoran1984/Spaghetti-990/internal/graph"
	"github.com/h2theoran1984/Spaghetti-990/internal/propublica"
	"github.com/h2theoran1984/Spaghetti-990/internal/remotezip"
)

type App struct {
	ProPublica   *propublica.Client
	EFTS         *efts.Client
	Graph        *graph.Builder
	Fetcher      *remotezip.HTTPRangeFetcher
	ZipBaseURL   string
	IndexBaseURL string
}

type AppContext struct {
	echo.Context
	App       *App
	RequestID string
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID, _ := gonanoid.New()
			c.Response().Header().Set("X-Request-Id", requestID)

			cc := &AppContext{c, app, requestID}
			return next(cc)
		}
	}
}
