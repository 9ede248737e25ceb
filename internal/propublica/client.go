package propublica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/h2theoran1984/Spaghetti-990/internal/util"
)

// ErrOrgNotFound means ProPublica has no record for the EIN.
var ErrOrgNotFound = errors.New("organization not found")

const userAgent = "spaghetti-990/0.1 (signalpot.dev)"

// Client talks to the ProPublica Nonprofit Explorer API. Free, no key
// required. Concurrent identical lookups are collapsed in flight; results
// are not cached across requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClientParams configures a ProPublica client.
type NewClientParams struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    params.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// OrgData is the org metadata plus filing list returned for one EIN.
type OrgData struct {
	Organization    Organization    `json:"organization"`
	FilingsWithData []OrgFiling     `json:"filings_with_data"`
	Error           json.RawMessage `json:"error"`
}

type Organization struct {
	Name           string     `json:"name"`
	SortName       string     `json:"sort_name"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	RevenueAmount  *int64     `json:"revenue_amount"`
	LatestObjectID flexString `json:"latest_object_id"`
}

type OrgFiling struct {
	PDFURL string `json:"pdf_url"`
}

// SearchResult is one hit of a name search.
type SearchResult struct {
	EIN   flexString `json:"ein"`
	Name  string     `json:"name"`
	City  string     `json:"city"`
	State string     `json:"state"`
}

// GetOrganization fetches org metadata and the filing list by EIN.
func (c *Client) GetOrganization(ctx context.Context, ein string) (OrgData, error) {
	clean := util.CanonicalEIN(ein)

	result, err, _ := c.group.Do(clean, func() (any, error) {
		return c.fetchOrganization(ctx, clean)
	})
	if err != nil {
		return OrgData{}, err
	}
	return result.(OrgData), nil
}

func (c *Client) fetchOrganization(ctx context.Context, cleanEIN string) (OrgData, error) {
	endpoint := fmt.Sprintf("%s/organizations/%s.json", c.baseURL, cleanEIN)
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return OrgData{}, err
	}
	if status == http.StatusNotFound {
		return OrgData{}, fmt.Errorf("%w: ein %s", ErrOrgNotFound, cleanEIN)
	}
	if status < 200 || status > 299 {
		return OrgData{}, fmt.Errorf("organization lookup returned status %d", status)
	}

	var data OrgData
	if err := json.Unmarshal(body, &data); err != nil {
		return OrgData{}, fmt.Errorf("failed to decode organization response: %w", err)
	}
	if len(data.Error) > 0 && string(data.Error) != "null" {
		return OrgData{}, fmt.Errorf("%w: ein %s", ErrOrgNotFound, cleanEIN)
	}
	return data, nil
}

// SearchOrganizations searches orgs by name.
func (c *Client) SearchOrganizations(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search.json?q=%s", c.baseURL, url.QueryEscape(query))
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("organization search returned status %d", status)
	}

	var data struct {
		Organizations []SearchResult `json:"organizations"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return data.Organizations, nil
}

// get performs one GET with a single retry on transport failure. HTTP
// statuses are returned as values and never retried.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	type response struct {
		body   []byte
		status int
	}

	resp, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) (response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return response{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)

		res, err := c.httpClient.Do(req)
		if err != nil {
			return response{}, fmt.Errorf("request failed: %w", err)
		}
		defer res.Body.Close()

		var buf bytes.Buffer
		if _, err := buf.ReadFrom(res.Body); err != nil {
			return response{}, fmt.Errorf("failed to read response: %w", err)
		}
		return response{body: buf.Bytes(), status: res.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.body, resp.status, nil
}

// ExtractObjectIDs collects candidate IRS object IDs from org data, newest
// first: the org's latest object ID, then the trailing segment of each
// filing's PDF URL (e.g. ...340714585_202212_990_2024010422167836.pdf).
func ExtractObjectIDs(data OrgData) []string {
	var ids []string

	if id := string(data.Organization.LatestObjectID); id != "" {
		ids = append(ids, id)
	}

	for _, filing := range data.FilingsWithData {
		if filing.PDFURL == "" {
			continue
		}
		segment := strings.TrimSuffix(filing.PDFURL, "/")
		if idx := strings.LastIndex(segment, "/"); idx >= 0 {
			segment = segment[idx+1:]
		}
		segment = strings.TrimSuffix(segment, ".pdf")
		parts := strings.Split(segment, "_")
		if last := parts[len(parts)-1]; last != "" {
			ids = append(ids, last)
		}
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// flexString decodes a JSON value that may arrive as either a string or a
// bare number; the API is inconsistent about identifier types.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}
