package nhc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/mmcdole/gofeed"
)

const userAgent = "cyclone-relay (+https://github.com/couchcryptid/cyclone-relay)"

// Client fetches NHC basin feeds and forecast-cone graphics.
// It implements relay.FeedSource and relay.ImageSource.
type Client struct {
	parser     *gofeed.Parser
	httpClient *http.Client
	baseURL    string
	basins     []string
	logger     *slog.Logger
}

// NewClient creates an NHC client for the given basins ("at", "ep", "cp").
func NewClient(baseURL string, basins []string, timeout time.Duration, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = httpClient
	parser.UserAgent = userAgent
	return &Client{
		parser:     parser,
		httpClient: httpClient,
		baseURL:    baseURL,
		basins:     basins,
		logger:     logger,
	}
}

// FeedURL returns the RSS feed URL for a basin.
func (c *Client) FeedURL(basin string) string {
	return fmt.Sprintf("%s/index-%s.xml", c.baseURL, basin)
}

// Cyclones polls every configured basin and returns the combined snapshot in
// basin order. Any basin failure fails the whole poll so a partial snapshot is
// never mistaken for dissipated storms.
func (c *Client) Cyclones(ctx context.Context) ([]domain.CycloneRecord, error) {
	var all []domain.CycloneRecord
	for _, basin := range c.basins {
		records, err := c.FetchBasin(ctx, basin)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	if all == nil {
		all = []domain.CycloneRecord{}
	}
	return all, nil
}

// FetchBasin fetches and normalizes a single basin feed.
func (c *Client) FetchBasin(ctx context.Context, basin string) ([]domain.CycloneRecord, error) {
	feed, err := c.parser.ParseURLWithContext(c.FeedURL(basin), ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", basin, err)
	}
	records := Normalize(feed, basin)
	c.logger.Debug("basin feed fetched", "basin", basin, "items", len(feed.Items), "cyclones", len(records))
	return records, nil
}

// ConeImageURL returns the 5-day forecast cone graphic for a storm.
func (c *Client) ConeImageURL(rec domain.CycloneRecord) string {
	return fmt.Sprintf("%s/storm_graphics/%s/%s_5day_cone_with_line_and_wind.png", c.baseURL, rec.SeasonalID, rec.ATCFID)
}

// ConeImage downloads the forecast cone graphic for a storm.
func (c *Client) ConeImage(ctx context.Context, rec domain.CycloneRecord) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ConeImageURL(rec), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cone image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cone image %s: status %d", rec.ATCFID, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read cone image: %w", err)
	}
	return data, nil
}

// ParseFeed parses a saved feed document, e.g. for offline inspection.
func ParseFeed(r io.Reader, basin string) ([]domain.CycloneRecord, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", basin, err)
	}
	return Normalize(feed, basin), nil
}
