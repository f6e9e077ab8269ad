package forexfactory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	httpclient "SignalRelay/pkg/http"
	"SignalRelay/pkg/util"
)

// Client reads the ForexFactory weekly calendar export.
type Client struct {
	url  string
	http *httpclient.Client
}

// The calendar CDN turns away requests that do not look like a browser.
const userAgent = "Mozilla/5.0 (compatible; signalrelay/1.0)"

func New(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: httpclient.NewClient(
		httpclient.WithTimeout(timeout),
		httpclient.WithUserAgent(userAgent),
	)}
}

var _ drepo.CalendarFetcher = (*Client)(nil)

type ffEvent struct {
	Title   string `json:"title"`
	Country string `json:"country"`
	Date    string `json:"date"` // RFC3339 with exchange offset
	Impact  string `json:"impact"`
}

// FetchCalendar returns the week's entries; holidays and undated rows are skipped.
func (c *Client) FetchCalendar(ctx context.Context) ([]models.CalendarEntry, error) {
	var events []ffEvent
	err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
		Method:  httpclient.MethodGet,
		URL:     c.url,
		Headers: map[string]string{"Accept": "application/json"},
	}, &events)
	if err != nil {
		return nil, fmt.Errorf("forexfactory calendar: %w", err)
	}

	out := make([]models.CalendarEntry, 0, len(events))
	for _, ev := range events {
		if strings.EqualFold(ev.Impact, "Holiday") || strings.TrimSpace(ev.Title) == "" {
			continue
		}
		at, ok := util.ParseTime(ev.Date)
		if !ok {
			continue
		}
		out = append(out, models.CalendarEntry{
			Title:   ev.Title,
			Country: ev.Country,
			Impact:  ev.Impact,
			At:      at.UTC(),
		})
	}
	return out, nil
}
