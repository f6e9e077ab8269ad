package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	"SignalRelay/pkg/util"
)

// DefaultKeywords are the high-impact macro terms a calendar entry must mention
// to count as risk.
var DefaultKeywords = []string{
	"CPI", "NFP", "Non-Farm", "FOMC", "Fed", "Interest Rate", "GDP", "PCE", "Powell", "Unemployment",
}

const DefaultMaxEntries = 20

// CalendarSource turns a calendar feed into a RiskSource. A keyword hit yields
// onHit with the source's penalty; no hit yields CLEAR.
type CalendarSource struct {
	name       string
	fetcher    drepo.CalendarFetcher
	onHit      models.RiskStatus
	adjust     int
	keywords   []string
	maxEntries int
	now        func() time.Time
}

type SourceOption func(*CalendarSource)

func WithKeywords(k []string) SourceOption {
	return func(s *CalendarSource) {
		if len(k) > 0 {
			s.keywords = k
		}
	}
}

func WithMaxEntries(n int) SourceOption {
	return func(s *CalendarSource) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithSourceClock(now func() time.Time) SourceOption {
	return func(s *CalendarSource) { s.now = now }
}

func NewCalendarSource(name string, fetcher drepo.CalendarFetcher, onHit models.RiskStatus, adjust int, opts ...SourceOption) *CalendarSource {
	s := &CalendarSource{
		name:       name,
		fetcher:    fetcher,
		onHit:      onHit,
		adjust:     adjust,
		keywords:   DefaultKeywords,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFinnhubSource is the primary source: hits are HIGH_RISK at -10.
func NewFinnhubSource(f drepo.CalendarFetcher, opts ...SourceOption) *CalendarSource {
	return NewCalendarSource("finnhub", f, models.RiskHigh, -10, opts...)
}

// NewForexFactorySource is the secondary source: hits are CPI_ALERT at -7.
func NewForexFactorySource(f drepo.CalendarFetcher, opts ...SourceOption) *CalendarSource {
	return NewCalendarSource("forexfactory", f, models.RiskCPI, -7, opts...)
}

var _ drepo.RiskSource = (*CalendarSource)(nil)

func (s *CalendarSource) Name() string { return s.name }

// Fetch scans the next maxEntries upcoming entries in time order. An empty or
// fully past calendar is ErrNoResult so the chain moves on.
func (s *CalendarSource) Fetch(ctx context.Context) (res models.RiskAssessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", s.name, r)
		}
	}()

	entries, err := s.fetcher.FetchCalendar(ctx)
	if err != nil {
		return models.RiskAssessment{}, err
	}

	now := s.now()
	upcoming := make([]models.CalendarEntry, 0, len(entries))
	for _, e := range entries {
		if !e.At.Before(now) {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) == 0 {
		return models.RiskAssessment{}, fmt.Errorf("%s: %w", s.name, drepo.ErrNoResult)
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].At.Before(upcoming[j].At) })
	if len(upcoming) > s.maxEntries {
		upcoming = upcoming[:s.maxEntries]
	}

	for _, e := range upcoming {
		if _, ok := util.ContainsAnyFold(e.Title, s.keywords); ok {
			return models.RiskAssessment{
				Status:  s.onHit,
				Message: fmt.Sprintf("⚠️ %s %s at %s UTC", e.Country, e.Title, e.At.UTC().Format("Mon 15:04")),
				Adjust:  s.adjust,
				Source:  s.name,
			}, nil
		}
	}
	return models.RiskAssessment{
		Status:  models.RiskClear,
		Message: "✅ No major macro events ahead",
		Adjust:  0,
		Source:  s.name,
	}, nil
}
