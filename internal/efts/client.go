package efts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/h2theoran1984/Spaghetti-990/internal/util"
)

// Client queries the IRS full-text search service for the newest object ID
// of an EIN. It is strictly a fallback: callers degrade gracefully when it
// is unreachable.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClientParams configures an EFTS client.
type NewClientParams struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    params.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FindLatestObjectID returns the newest known object ID for ein, or an
// empty string when the search has no hits.
func (c *Client) FindLatestObjectID(ctx context.Context, ein string) (string, error) {
	clean := util.CanonicalEIN(ein)

	query := url.Values{}
	query.Set("q", fmt.Sprintf("%q", clean))
	query.Set("forms", "990")

	endpoint := c.baseURL + "?" + query.Encode()

	body, err := util.RetryWithContext(ctx, 2, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create search request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("search request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return "", err
	}

	var data struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ObjectID string `json:"ObjectId"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	if len(data.Hits.Hits) == 0 {
		return "", nil
	}
	return data.Hits.Hits[0].Source.ObjectID, nil
}
