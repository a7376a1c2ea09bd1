package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
)

const (
	tasksPath    = "/api/tasks"
	commandsPath = "/api/commands"

	commandTypeUpdate = "update-task"
	entityTypeTask    = "task"
)

// TokenSource supplies the bearer token attached to every backend request.
type TokenSource interface {
	Token() (string, error)
}

// command mirrors the backend's write envelope. Every command carries an
// idempotency key so a retry after a transport timeout cannot double-apply.
type command struct {
	IdempotencyKey string                 `json:"idempotencyKey"`
	EntityType     string                 `json:"entityType"`
	Type           string                 `json:"type"`
	Data           sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

type moveData struct {
	ID        string `json:"id"`
	Container string `json:"container"`
	Order     int64  `json:"order"`
}

type tasksResponse struct {
	Tasks         []domain.Task `json:"tasks"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// Client talks to the authoritative Momentum API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	clock   commandClock
}

// NewClient creates a backend client. A nil httpClient uses a default with a
// sane timeout.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient, tokens: tokens}
}

// FetchTasks retrieves one page of the authoritative task list.
func (c *Client) FetchTasks(ctx context.Context, pageToken string, pageSize int) ([]domain.Task, string, error) {
	u := c.baseURL + tasksPath
	q := url.Values{}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	if err := c.authorize(req); err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", statusError(resp)
	}

	var out tasksResponse
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("decode tasks response: %w", err)
	}
	return out.Tasks, out.NextPageToken, nil
}

// FetchAllTasks walks every page of the task list.
func (c *Client) FetchAllTasks(ctx context.Context) ([]domain.Task, error) {
	var all []domain.Task
	token := ""
	for {
		tasks, next, err := c.FetchTasks(ctx, token, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

// Apply sends one batch of authoritative move instructions as update-task
// commands in a single request. The backend treats the batch atomically. Any
// non-2xx answer is a rejection; the reason stays opaque to the engine.
func (c *Client) Apply(ctx context.Context, moves []engine.TaskMove) error {
	if len(moves) == 0 {
		return nil
	}
	cmds := make([]command, 0, len(moves))
	for _, mv := range moves {
		data, err := sonic.Marshal(moveData{ID: mv.ID, Container: mv.Container, Order: mv.Order})
		if err != nil {
			return err
		}
		cmds = append(cmds, command{
			IdempotencyKey: uuid.NewString(),
			EntityType:     entityTypeTask,
			Type:           commandTypeUpdate,
			Data:           sonic.NoCopyRawMessage(data),
			Timestamp:      c.clock.next(),
		})
	}

	body, err := sonic.Marshal(cmds)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+commandsPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) == 0 {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return fmt.Errorf("backend returned %s: %s", resp.Status, bytes.TrimSpace(body))
}

// commandClock issues the strictly increasing timestamps command envelopes
// carry. Wall-clock nanos, bumped past the previous value whenever two moves
// land within one clock tick.
type commandClock struct {
	last atomic.Int64
}

func (k *commandClock) next() int64 {
	for {
		ts := time.Now().UnixNano()
		prev := k.last.Load()
		if ts <= prev {
			ts = prev + 1
		}
		if k.last.CompareAndSwap(prev, ts) {
			return ts
		}
	}
}
