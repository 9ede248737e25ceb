package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/h2theoran1984/Spaghetti-990/internal/server/middleware"
)

const maxSearchResults = 10

func GetSearchHandler(c echo.Context) error {
	type searchParams struct {
		Name string `query:"name" validate:"required"`
	}

	type searchResult struct {
		EIN   string `json:"ein"`
		Name  string `json:"name"`
		City  string `json:"city"`
		State string `json:"state"`
	}

	type searchResponse struct {
		Results []searchResult `json:"results"`
	}

	params := new(searchParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	matches, err := app.ProPublica.SearchOrganizations(ctx, params.Name)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Organization search is unavailable"})
	}

	if len(matches) > maxSearchResults {
		matches = matches[:maxSearchResults]
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResult{
			EIN:   string(m.EIN),
			Name:  m.Name,
			City:  m.City,
			State: m.State,
		})
	}

	return c.JSON(http.StatusOK, searchResponse{Results: results})
}
