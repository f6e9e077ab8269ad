package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	drepo "SignalRelay/internal/domain/repository"
	httpclient "SignalRelay/pkg/http"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	ErrNoAPIKey        = errors.New("gemini api key not configured")
	ErrEmptyCompletion = errors.New("gemini returned no text")
)

// CompletionError reports a response without text. A completion withheld by
// the safety filter (BlockReason set) will be withheld again, so only an
// unexplained empty reply is worth retrying.
type CompletionError struct {
	BlockReason string
}

func (e *CompletionError) Error() string {
	if e.BlockReason != "" {
		return fmt.Sprintf("%s: blocked (%s)", ErrEmptyCompletion, e.BlockReason)
	}
	return ErrEmptyCompletion.Error()
}

func (e *CompletionError) Is(target error) bool { return target == ErrEmptyCompletion }

func (e *CompletionError) Retryable() bool { return e.BlockReason == "" }

// Config holds generateContent settings.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	RatePerMinute int
}

// Client implements TextGenerator on the Gemini REST API.
type Client struct {
	cfg     Config
	http    *httpclient.Client
	limiter *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return &Client{
		cfg:     cfg,
		http:    httpclient.NewClient(httpclient.WithTimeout(cfg.Timeout)),
		limiter: lim,
	}
}

var _ drepo.TextGenerator = (*Client)(nil)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// Generate sends prompt as a single user turn and returns the joined text parts
// of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini rate wait: %w", err)
	}

	var raw []byte
	err := c.http.SendAndParse(ctx, &httpclient.RequestOptions{
		Method:      httpclient.MethodPost,
		URL:         fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model)),
		QueryParams: map[string][]string{"key": {c.cfg.APIKey}},
		Body: generateRequest{
			Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
			GenerationConfig: generationConfig{Temperature: 0.4, MaxOutputTokens: 256},
		},
	}, &raw)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var b strings.Builder
	gjson.GetBytes(raw, "candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
		b.WriteString(v.String())
		return true
	})
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", &CompletionError{BlockReason: gjson.GetBytes(raw, "promptFeedback.blockReason").String()}
	}
	return text, nil
}
