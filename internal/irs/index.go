package irs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

// ErrNoFiling means no filing could be resolved for an EIN after
// exhausting the searched index periods.
var ErrNoFiling = errors.New("no filing found in index")

const (
	indexChunkSize  = 64 * 1024
	indexMaxPeriods = 4
	returnTypeForm  = "990"
)

// IndexClient resolves an EIN to the archival object ID and filing period
// of its most recent form 990, by streaming the yearly index files. The
// files run to hundreds of megabytes and are never materialized in memory.
type IndexClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewIndexClientParams configures an IndexClient.
type NewIndexClientParams struct {
	BaseURL string
	Timeout time.Duration
	Now     func() time.Time
}

func NewIndexClient(params NewIndexClientParams) *IndexClient {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &IndexClient{
		baseURL:    params.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		now:        now,
	}
}

// Filing is one resolved index row.
type Filing struct {
	ObjectID  string
	TaxPeriod string
}

// FindLatestFiling searches the current period's index and up to three
// prior periods for the newest form 990 filing of ein. Transient failures
// on one period fall through to the next; exhaustion is ErrNoFiling.
func (c *IndexClient) FindLatestFiling(ctx context.Context, ein string) (Filing, error) {
	clean := util.CanonicalEIN(ein)
	year := c.now().Year()

	for period := 0; period < indexMaxPeriods; period++ {
		filing, err := c.searchPeriod(ctx, clean, year-period)
		if err == nil {
			return filing, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Filing{}, err
		}
		if !errors.Is(err, ErrNoFiling) {
			logger.Debug("Index period unavailable", "year", year-period, "err", err)
		}
	}
	return Filing{}, fmt.Errorf("%w: ein %s in %d periods", ErrNoFiling, clean, indexMaxPeriods)
}

func (c *IndexClient) searchPeriod(ctx context.Context, cleanEIN string, year int) (Filing, error) {
	url := fmt.Sprintf("%s/%d/index_%d.csv", c.baseURL, year, year)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Filing{}, fmt.Errorf("failed to create index request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Filing{}, fmt.Errorf("index fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Filing{}, fmt.Errorf("index fetch returned status %d for %s", resp.StatusCode, url)
	}

	scanner := newLineChunker(indexChunkSize)
	var columns indexColumns
	haveHeader := false
	var best Filing
	found := false

	chunk := make([]byte, indexChunkSize)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			scanner.push(chunk[:n])
		}
		done := readErr != nil
		for {
			line, ok := scanner.nextLine(done)
			if !ok {
				break
			}
			if !haveHeader {
				columns, err = parseIndexHeader(line)
				if err != nil {
					return Filing{}, err
				}
				haveHeader = true
				continue
			}
			if filing, ok := columns.match(line, cleanEIN); ok {
				// Object IDs are fixed-width numeric, so the
				// lexicographic maximum is the newest filing.
				if !found || filing.ObjectID > best.ObjectID {
					best = filing
					found = true
				}
			}
		}
		if done {
			if !errors.Is(readErr, io.EOF) {
				return Filing{}, fmt.Errorf("index stream failed: %w", readErr)
			}
			break
		}
	}

	if !found {
		return Filing{}, ErrNoFiling
	}
	return best, nil
}

// lineChunker reassembles lines out of fixed-size byte chunks, buffering
// any trailing partial line across chunk boundaries.
type lineChunker struct {
	pending []byte
}

func newLineChunker(sizeHint int) *lineChunker {
	return &lineChunker{pending: make([]byte, 0, sizeHint)}
}

func (l *lineChunker) push(chunk []byte) {
	l.pending = append(l.pending, chunk...)
}

// nextLine returns the next complete line, without its terminator. When
// flush is set (end of stream), a trailing unterminated line is returned
// as well.
func (l *lineChunker) nextLine(flush bool) (string, bool) {
	idx := bytes.IndexByte(l.pending, '\n')
	if idx < 0 {
		if flush && len(l.pending) > 0 {
			line := string(l.pending)
			l.pending = l.pending[:0]
			return strings.TrimSuffix(line, "\r"), true
		}
		return "", false
	}
	line := string(l.pending[:idx])
	l.pending = l.pending[idx+1:]
	return strings.TrimSuffix(line, "\r"), true
}

// indexColumns maps the header row's column names to field positions.
type indexColumns struct {
	ein        int
	returnType int
	objectID   int
	taxPeriod  int
	total      int
}

func parseIndexHeader(header string) (indexColumns, error) {
	cols := indexColumns{ein: -1, returnType: -1, objectID: -1, taxPeriod: -1}
	fields := strings.Split(header, ",")
	cols.total = len(fields)
	for i, name := range fields {
		switch strings.ToUpper(strings.TrimSpace(name)) {
		case "EIN":
			cols.ein = i
		case "RETURN_TYPE":
			cols.returnType = i
		case "OBJECT_ID":
			cols.objectID = i
		case "TAX_PERIOD":
			cols.taxPeriod = i
		}
	}
	if cols.ein < 0 || cols.returnType < 0 || cols.objectID < 0 || cols.taxPeriod < 0 {
		return indexColumns{}, fmt.Errorf("index header lacks required columns: %q", header)
	}
	return cols, nil
}

// match zips one data row against the header. Rows with fewer fields than
// the header are skipped, not fatal.
func (c indexColumns) match(line, cleanEIN string) (Filing, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < c.total {
		return Filing{}, false
	}
	if util.CanonicalEIN(strings.TrimSpace(fields[c.ein])) != cleanEIN {
		return Filing{}, false
	}
	if strings.TrimSpace(fields[c.returnType]) != returnTypeForm {
		return Filing{}, false
	}
	return Filing{
		ObjectID:  strings.TrimSpace(fields[c.objectID]),
		TaxPeriod: strings.TrimSpace(fields[c.taxPeriod]),
	}, true
}
