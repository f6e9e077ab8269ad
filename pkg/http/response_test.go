package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	c, rec := newContext("")
	require.NoError(t, AppErrorResponse(c, RateLimitedError()))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Contains(t, rec.Body.String(), CodeRateLimited)
}

func TestAppErrorResponseHidesPlainErrors(t *testing.T) {
	c, rec := newContext("")
	require.NoError(t, AppErrorResponse(c, errors.New("db password leaked")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := InternalError("dispatch failed").WithError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dispatch failed: boom", err.Error())
}

type limitRequest struct {
	Target string `json:"target" default:"all" validate:"oneof=all risk"`
	Limit  int    `json:"limit" default:"10" validate:"gte=1,lte=100"`
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		codes []string
		want  limitRequest
	}{
		{name: "empty body takes defaults", want: limitRequest{Target: "all", Limit: 10}},
		{name: "explicit values", body: `{"target":"risk","limit":5}`, want: limitRequest{Target: "risk", Limit: 5}},
		{name: "bad option", body: `{"target":"nope"}`, codes: []string{"ERR_ONEOF"}},
		{name: "out of range", body: `{"limit":500}`, codes: []string{"ERR_LTE"}},
		{name: "broken json", body: `{"limit":`, codes: []string{CodeBadRequest}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.body)
			var req limitRequest
			verrs := ReadAndValidateRequest(c, &req)
			if tt.codes == nil {
				require.Nil(t, verrs)
				assert.Equal(t, tt.want, req)
				return
			}
			codes := make([]string, 0, len(verrs))
			for _, v := range verrs {
				codes = append(codes, v.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}
