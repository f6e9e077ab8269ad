package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"SignalRelay/internal/domain/models"
	"SignalRelay/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botServer struct {
	mu       sync.Mutex
	requests []map[string]interface{}
	handle   func(n int, body map[string]interface{}) (int, string)
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	b.requests = append(b.requests, body)
	n := len(b.requests)
	b.mu.Unlock()
	code, resp := b.handle(n, body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(resp))
}

func newTestClient(t *testing.T, bs *botServer) *Client {
	srv := httptest.NewServer(bs)
	t.Cleanup(srv.Close)
	return New(Config{APIURL: srv.URL, BotToken: "TOKEN", ChatID: "-1001", ParseMode: "Markdown"}, logger.Nop())
}

func TestNotifyReturnsMessageID(t *testing.T) {
	bs := &botServer{handle: func(int, map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":321}}`
	}}
	c := newTestClient(t, bs)

	id, err := c.Notify(context.Background(), "*hello*", 0)
	require.NoError(t, err)
	assert.Equal(t, models.MessageID(321), id)

	require.Len(t, bs.requests, 1)
	assert.Equal(t, "-1001", bs.requests[0]["chat_id"])
	assert.Equal(t, "Markdown", bs.requests[0]["parse_mode"])
	_, threaded := bs.requests[0]["reply_to_message_id"]
	assert.False(t, threaded)
}

func TestNotifyThreadsReply(t *testing.T) {
	bs := &botServer{handle: func(int, map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":2}}`
	}}
	c := newTestClient(t, bs)

	_, err := c.Notify(context.Background(), "reply", 77)
	require.NoError(t, err)
	assert.Equal(t, float64(77), bs.requests[0]["reply_to_message_id"])
	assert.Equal(t, true, bs.requests[0]["allow_sending_without_reply"])
}

func TestNotifyFallsBackToPlainText(t *testing.T) {
	bs := &botServer{handle: func(n int, body map[string]interface{}) (int, string) {
		if _, ok := body["parse_mode"]; ok {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: unclosed"}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":9}}`
	}}
	c := newTestClient(t, bs)

	id, err := c.Notify(context.Background(), "*broken", 0)
	require.NoError(t, err)
	assert.Equal(t, models.MessageID(9), id)
	assert.Len(t, bs.requests, 2)
}

func TestNotifyRejected(t *testing.T) {
	bs := &botServer{handle: func(int, map[string]interface{}) (int, string) {
		return http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot is not a member"}`
	}}
	c := newTestClient(t, bs)

	id, err := c.Notify(context.Background(), "x", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Zero(t, id)
	assert.Len(t, bs.requests, 1)
}
