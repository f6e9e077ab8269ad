package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"SignalRelay/internal/domain/models"
	drepo "SignalRelay/internal/domain/repository"
	httpclient "SignalRelay/pkg/http"
	"SignalRelay/pkg/logger"
)

// ErrRejected is returned when the Bot API answers ok=false.
var ErrRejected = errors.New("telegram rejected message")

// Config holds Bot API settings.
type Config struct {
	APIURL    string
	BotToken  string
	ChatID    string
	ParseMode string
	Timeout   time.Duration
}

// Client implements Notifier backed by the Telegram Bot API.
type Client struct {
	cfg  Config
	http *httpclient.Client
	log  *logger.Logger
}

// New creates a new Telegram notifier.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: httpclient.NewClient(httpclient.WithTimeout(cfg.Timeout)),
		log:  log,
	}
}

var _ drepo.Notifier = (*Client)(nil)

type sendMessageRequest struct {
	ChatID                   string `json:"chat_id"`
	Text                     string `json:"text"`
	ParseMode                string `json:"parse_mode,omitempty"`
	ReplyToMessageID         int64  `json:"reply_to_message_id,omitempty"`
	AllowSendingWithoutReply bool   `json:"allow_sending_without_reply,omitempty"`
	DisableWebPagePreview    bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Notify sends text to the configured chat, threading it under replyTo when
// non-zero. Markdown the API cannot parse is resent once as plain text.
func (c *Client) Notify(ctx context.Context, text string, replyTo models.MessageID) (models.MessageID, error) {
	req := sendMessageRequest{
		ChatID:                c.cfg.ChatID,
		Text:                  text,
		ParseMode:             c.cfg.ParseMode,
		DisableWebPagePreview: true,
	}
	if replyTo != 0 {
		req.ReplyToMessageID = int64(replyTo)
		req.AllowSendingWithoutReply = true
	}

	id, err := c.send(ctx, req)
	if err != nil && req.ParseMode != "" && isEntityError(err) {
		c.log.Warn("telegram markdown rejected, resending as plain text", logger.Error(err))
		req.ParseMode = ""
		id, err = c.send(ctx, req)
	}
	return id, err
}

func (c *Client) send(ctx context.Context, body sendMessageRequest) (models.MessageID, error) {
	resp, err := c.http.SendRequest(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.BotToken),
		Body:   body,
	})
	if err != nil {
		return 0, fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("telegram read: %w", err)
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("telegram decode (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return 0, fmt.Errorf("%w: %d %s", ErrRejected, out.ErrorCode, out.Description)
	}
	return models.MessageID(out.Result.MessageID), nil
}

func isEntityError(err error) bool {
	return errors.Is(err, ErrRejected) && strings.Contains(err.Error(), "can't parse entities")
}
