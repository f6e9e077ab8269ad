package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	httpclient "SignalRelay/pkg/http"
	"SignalRelay/pkg/util"
)

var ErrNoAPIKey = errors.New("finnhub api key not configured")

// Client fetches the Finnhub economic calendar.
type Client struct {
	apiKey  string
	baseURL string
	horizon time.Duration
	http    *httpclient.Client
	now     func() time.Time
}

// New creates a calendar client looking horizon ahead of now.
func New(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		horizon: 7 * 24 * time.Hour,
		http:    httpclient.NewClient(httpclient.WithTimeout(timeout)),
		now:     time.Now,
	}
}

var _ drepo.CalendarFetcher = (*Client)(nil)

type fhEvent struct {
	Country string `json:"country"`
	Event   string `json:"event"`
	Impact  string `json:"impact"`
	Time    string `json:"time"` // "2006-01-02 15:04:05" UTC
}

type fhCalendar struct {
	EconomicCalendar []fhEvent `json:"economicCalendar"`
}

// FetchCalendar returns entries scheduled between today and the horizon.
func (c *Client) FetchCalendar(ctx context.Context) ([]models.CalendarEntry, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	now := c.now().UTC()
	var cal fhCalendar
	err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    c.baseURL + "/calendar/economic",
		QueryParams: map[string][]string{
			"from":  {now.Format("2006-01-02")},
			"to":    {now.Add(c.horizon).Format("2006-01-02")},
			"token": {c.apiKey},
		},
	}, &cal)
	if err != nil {
		return nil, fmt.Errorf("finnhub calendar: %w", err)
	}

	out := make([]models.CalendarEntry, 0, len(cal.EconomicCalendar))
	for _, ev := range cal.EconomicCalendar {
		at, ok := util.ParseTime(ev.Time)
		if !ok || strings.TrimSpace(ev.Event) == "" {
			continue
		}
		out = append(out, models.CalendarEntry{
			Title:   ev.Event,
			Country: ev.Country,
			Impact:  ev.Impact,
			At:      at.UTC(),
		})
	}
	return out, nil
}
