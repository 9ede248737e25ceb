package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/h2theoran1984/Spaghetti-990/internal/graph"
	"github.com/h2theoran1984/Spaghetti-990/internal/propublica"
	"github.com/h2theoran1984/Spaghetti-990/internal/server/middleware"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

// LookupRequest is the lookup capability input. The EIN is accepted with or
// without dashes; depth defaults to 1 and is clamped to [1, 3].
type LookupRequest struct {
	EIN   string `json:"ein" validate:"required"`
	Depth int    `json:"depth"`
}

// LookupResponse is the lookup capability output.
type LookupResponse struct {
	Root               *graph.EntityNode `json:"root"`
	TotalEntitiesFound int               `json:"total_entities_found"`
	DepthReached       int               `json:"depth_reached"`
}

func PostLookupHandler(c echo.Context) error {
	params := new(LookupRequest)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if !util.IsValidEIN(params.EIN) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "EIN must contain exactly 9 digits"})
	}

	depth := params.Depth
	if depth == 0 {
		depth = 1
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	requestID := c.(*middleware.AppContext).RequestID

	result, err := app.Graph.Build(ctx, params.EIN, depth)
	if err != nil {
		if errors.Is(err, propublica.ErrOrgNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
		}
		logger.Error("Failed to build entity graph", "ein", util.CanonicalEIN(params.EIN), "request_id", requestID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	logger.Info("Built entity graph",
		"ein", util.CanonicalEIN(params.EIN),
		"request_id", requestID,
		"entities", result.TotalEntities,
		"depth", result.Depth,
	)

	return c.JSON(http.StatusOK, LookupResponse{
		Root:               result.Root,
		TotalEntitiesFound: result.TotalEntities,
		DepthReached:       result.Depth,
	})
}
