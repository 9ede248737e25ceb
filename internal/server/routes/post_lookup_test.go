package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/h2theoran1984/Spaghetti-990/internal/efts"
	"github.com/h2theoran1984/Spaghetti-990/internal/graph"
	"github.com/h2theoran1984/Spaghetti-990/internal/irs"
	"github.com/h2theoran1984/Spaghetti-990/internal/propublica"
	"github.com/h2theoran1984/Spaghetti-990/internal/remotezip"
	"github.com/h2theoran1984/Spaghetti-990/internal/server/middleware"
)

type testValidator struct {
	validator *validator.Validate
}

func (tv *testValidator) Validate(i any) error {
	return tv.validator.Struct(i)
}

// newTestApp wires the full client stack against one httptest server:
// ProPublica under /pp, everything IRS-side a 404 so filings come back
// empty without being an error.
func newTestApp(t *testing.T, ppHandler http.HandlerFunc) *middleware.App {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/pp/") {
			ppHandler(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	timeout := 5 * time.Second
	fetcher := remotezip.NewHTTPRangeFetcher(remotezip.NewHTTPRangeFetcherParams{Timeout: timeout})
	proPublica := propublica.NewClient(propublica.NewClientParams{BaseURL: srv.URL + "/pp", Timeout: timeout})
	filings := irs.NewFilingService(irs.NewFilingServiceParams{
		Extractor: remotezip.NewClient(fetcher),
		Index: irs.NewIndexClient(irs.NewIndexClientParams{
			BaseURL: srv.URL + "/index",
			Timeout: timeout,
		}),
		ZipBaseURL: srv.URL + "/zips",
	})

	return &middleware.App{
		ProPublica: proPublica,
		EFTS:       efts.NewClient(efts.NewClientParams{BaseURL: srv.URL + "/efts", Timeout: timeout}),
		Graph: graph.NewBuilder(graph.NewBuilderParams{
			Metadata: graph.NewProPublicaMetadataResolver(proPublica),
			Filings:  graph.NewIRSFilingResolver(filings),
		}),
		Fetcher:      fetcher,
		ZipBaseURL:   srv.URL + "/zips",
		IndexBaseURL: srv.URL + "/index",
	}
}

func performLookup(t *testing.T, app *middleware.App, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(http.MethodPost, "/api/lookup", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	c := e.NewContext(req, rec)
	cc := &middleware.AppContext{Context: c, App: app, RequestID: "test"}
	if err := PostLookupHandler(cc); err != nil {
		t.Fatalf("PostLookupHandler: %v", err)
	}
	return rec
}

func TestPostLookup(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pp/organizations/340714585.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"organization": {"name": "CLEVELAND CLINIC", "city": "Cleveland", "state": "OH"}}`)
	})

	rec := performLookup(t, app, `{"ein": "34-0714585"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp LookupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Root == nil || resp.Root.Name != "CLEVELAND CLINIC" {
		t.Fatalf("root = %+v", resp.Root)
	}
	if resp.Root.EIN != "340714585" {
		t.Fatalf("root ein = %q, want canonical digits", resp.Root.EIN)
	}
	if resp.DepthReached != 1 || resp.TotalEntitiesFound != 1 {
		t.Fatalf("resp = %+v, depth must default to 1", resp)
	}
}

func TestPostLookupUnknownOrg(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	rec := performLookup(t, app, `{"ein": "999999999"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown org", rec.Code)
	}
}

func TestPostLookupInvalidParams(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "MissingEIN", body: `{"depth": 2}`},
		{name: "ShortEIN", body: `{"ein": "12345"}`},
		{name: "NonNumericEIN", body: `{"ein": "not-an-ein"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := performLookup(t, app, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}
