package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/gtfs"
)

// Request timeout bounds. Feeds refresh on the order of seconds to minutes;
// a fetch that cannot finish inside a minute is dead.
const (
	DefaultTimeout = 30 * time.Second
	minTimeout     = 5 * time.Second
	maxTimeout     = 60 * time.Second

	userAgent = "gtfsrt-aggregator/0.1"
)

// Client fetches and decodes GTFS-RT feeds. Network I/O is its only
// blocking operation; decoding is CPU-bound.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client with the given per-request timeout,
// clamped to [5s, 60s]. A zero timeout selects DefaultTimeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if timeout == 0 {
		timeout = DefaultTimeout
	}

	if timeout < minTimeout {
		timeout = minTimeout
	}

	if timeout > maxTimeout {
		timeout = maxTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch performs a single GET of url, decodes the body as a GTFS-RT
// FeedMessage, and returns one snapshot per requested service type with
// fetch_time set to nowUTC on every row. Content-Type is advisory and
// ignored; parsing is the source of truth. A valid feed with zero matching
// entities yields empty snapshots, not an error.
func (c *Client) Fetch(
	ctx context.Context, url string, services []gtfs.ServiceType, nowUTC time.Time,
) (map[gtfs.ServiceType]*gtfs.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)

		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: ErrStatus}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: reading body: %v", ErrTransport, err)}
	}

	snapshots, err := gtfs.Decode(body, services, nowUTC)
	if err != nil {
		return nil, &ParseError{URL: url, Bytes: len(body), Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	total := 0
	for _, snap := range snapshots {
		total += snap.Len()
	}

	c.logger.Debug("feed fetched",
		slog.String("url", url),
		slog.Int("bytes", len(body)),
		slog.Int("rows", total),
	)

	return snapshots, nil
}
