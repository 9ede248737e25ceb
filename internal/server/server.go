package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/h2theoran1984/Spaghetti-990/internal/efts"
	"github.com/h2theoran1984/Spaghetti-990/internal/graph"
	"github.com/h2theoran1984/Spaghetti-990/internal/irs"
	"github.com/h2theoran1984/Spaghetti-990/internal/propublica"
	"github.com/h2theoran1984/Spaghetti-990/internal/remotezip"
	mid "github.com/h2theoran1984/Spaghetti-990/internal/server/middleware"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"

	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	defaultZipBase       = "https://apps.irs.gov/pub/epostcard/990/xml"
	defaultIndexBase     = "https://apps.irs.gov/pub/epostcard/990/xml"
	defaultEFTSURL       = "https://efts.irs.gov/LATEST/search-index"
	defaultProPublicaURL = "https://projects.propublica.org/nonprofits/api/v2"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(util.GetEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second
	zipBase := util.GetEnvString("IRS_ZIP_BASE", defaultZipBase)
	indexBase := util.GetEnvString("IRS_INDEX_BASE", defaultIndexBase)

	fetcher := remotezip.NewHTTPRangeFetcher(remotezip.NewHTTPRangeFetcherParams{
		Timeout: timeout,
	})

	proPublica := propublica.NewClient(propublica.NewClientParams{
		BaseURL: util.GetEnvString("PROPUBLICA_URL", defaultProPublicaURL),
		Timeout: timeout,
	})

	eftsClient := efts.NewClient(efts.NewClientParams{
		BaseURL: util.GetEnvString("EFTS_URL", defaultEFTSURL),
		Timeout: timeout,
	})

	filings := irs.NewFilingService(irs.NewFilingServiceParams{
		Extractor: remotezip.NewClient(fetcher),
		Index: irs.NewIndexClient(irs.NewIndexClientParams{
			BaseURL: indexBase,
			Timeout: timeout,
		}),
		Search:     eftsClient,
		ZipBaseURL: zipBase,
	})

	builder := graph.NewBuilder(graph.NewBuilderParams{
		Metadata: graph.NewProPublicaMetadataResolver(proPublica),
		Filings:  graph.NewIRSFilingResolver(filings),
	})

	app := &mid.App{
		ProPublica:   proPublica,
		EFTS:         eftsClient,
		Graph:        builder,
		Fetcher:      fetcher,
		ZipBaseURL:   zipBase,
		IndexBaseURL: indexBase,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
