package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/h2theoran1984/Spaghetti-990/internal/irs"
	"github.com/h2theoran1984/Spaghetti-990/internal/server/middleware"
)

// probeEIN is a stable, well-known filer used to exercise the live
// dependencies end to end.
const probeEIN = "340714585"

// GetConnectivityHandler checks each upstream dependency from this server:
// the full-text search service, the bulk archive host (using the object ID
// the search returned, when it did), and the yearly index host.
func GetConnectivityHandler(c echo.Context) error {
	type probeResult struct {
		OK       bool   `json:"ok"`
		ObjectID string `json:"object_id,omitempty"`
		URL      string `json:"url,omitempty"`
		Bytes    int64  `json:"bytes,omitempty"`
		Preview  string `json:"preview,omitempty"`
		Error    string `json:"error,omitempty"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	results := make(map[string]probeResult)

	objectID, err := app.EFTS.FindLatestObjectID(ctx, probeEIN)
	switch {
	case err != nil:
		results["efts"] = probeResult{Error: err.Error()}
	case objectID == "":
		results["efts"] = probeResult{OK: true}
	default:
		results["efts"] = probeResult{OK: true, ObjectID: objectID}
	}

	if objectID != "" {
		url := irs.CandidateZipURLs(app.ZipBaseURL, objectID, time.Now())[0]
		length, err := app.Fetcher.ProbeLength(ctx, url)
		if err != nil {
			results["archive"] = probeResult{URL: url, Error: err.Error()}
		} else {
			results["archive"] = probeResult{OK: true, URL: url, Bytes: length}
		}
	}

	year := time.Now().Year() - 1
	indexURL := fmt.Sprintf("%s/%d/index_%d.csv", app.IndexBaseURL, year, year)
	preview, err := app.Fetcher.FetchRange(ctx, indexURL, 0, 199)
	if err != nil {
		results["index"] = probeResult{URL: indexURL, Error: err.Error()}
	} else {
		results["index"] = probeResult{OK: true, URL: indexURL, Preview: string(preview)}
	}

	return c.JSON(http.StatusOK, results)
}
