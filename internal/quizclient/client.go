// Package quizclient talks to a running quiz server.
package quizclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/opening-quiz/pkg/quizdto"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context) (*quizdto.SessionState, error) {
	var resp quizdto.CreateSessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/sessions", nil, &resp, false); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, nil, false)
}

func (c *Client) State(ctx context.Context, id string) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, true)
}

func (c *Client) Move(ctx context.Context, id, move string) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodPost, sessionPath(id, "/moves"), quizdto.MoveRequest{Move: move}, false)
}

func (c *Client) Action(ctx context.Context, id string, req quizdto.ActionRequest) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodPost, sessionPath(id, "/actions"), req, false)
}

func (c *Client) Key(ctx context.Context, id, key string) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodPost, sessionPath(id, "/keys/"+url.PathEscape(key)), nil, false)
}

// LoadPGN loads text into the session, also saving it when save is set.
func (c *Client) LoadPGN(ctx context.Context, id, text string, save bool) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodPost, sessionPath(id, "/pgn"), quizdto.LoadRequest{PGN: text, Save: save}, false)
}

func (c *Client) LoadSaved(ctx context.Context, id, quizID string) (*quizdto.SessionState, error) {
	return c.stateCall(ctx, fasthttp.MethodPost, sessionPath(id, "/quizzes/"+url.PathEscape(quizID)), nil, false)
}

func (c *Client) ListSaved(ctx context.Context) ([]quizdto.SavedQuiz, error) {
	var resp quizdto.SavedList
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/quizzes", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Quizzes, nil
}

func (c *Client) DeleteSaved(ctx context.Context, quizID string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, "/api/quizzes/"+url.PathEscape(quizID), nil, nil, false)
}

func (c *Client) Index(ctx context.Context, id string) (*quizdto.IndexSnapshot, error) {
	var out quizdto.IndexSnapshot
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, "/index"), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// BoardPNG fetches the rendered board image.
func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + sessionPath(id, "/board.png"))
	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, decodeError(status, resp.Body())
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) stateCall(ctx context.Context, method, path string, in any, retry bool) (*quizdto.SessionState, error) {
	var resp quizdto.StateResponse
	if err := c.doJSON(ctx, method, path, in, &resp, retry); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// doJSON sends in as JSON and decodes a 2xx body into out. Only idempotent
// calls pass retry.
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := decodeError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil && len(resp.Body()) > 0 {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeError(status int, body []byte) error {
	var er quizdto.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Code == "" {
		return quizdto.DomainError{Status: status, Message: fmt.Sprintf("quiz api error: status=%d body=%s", status, truncate(string(body), 512))}
	}
	return quizdto.DomainError{Status: status, Code: er.Code, Message: er.Error, Retryable: er.Retryable}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
