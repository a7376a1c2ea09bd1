package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

// wireCommand mirrors the command envelope with std-library types so the
// fake backend can decode what the client sent.
type wireCommand struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	EntityType     string          `json:"entityType"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	Timestamp      int64           `json:"timestamp"`
}

func TestFetchAllTasksWalksPages(t *testing.T) {
	e := echo.New()
	e.GET("/api/tasks", func(c echo.Context) error {
		if got := c.Request().Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		switch c.QueryParam("pageToken") {
		case "":
			return c.JSON(http.StatusOK, tasksResponse{
				Tasks:         []domain.Task{{ID: "a", Container: "inbox", Order: 1000}},
				NextPageToken: "p2",
			})
		case "p2":
			return c.JSON(http.StatusOK, tasksResponse{
				Tasks: []domain.Task{{ID: "b", Container: "inbox", Order: 2000}},
			})
		default:
			return c.String(http.StatusBadRequest, "invalid page token")
		}
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, staticToken("tok"), nil)
	tasks, err := client.FetchAllTasks(context.Background())
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "a" || tasks[1].ID != "b" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestApplySendsOneAtomicCommandBatch(t *testing.T) {
	var mu sync.Mutex
	var received [][]wireCommand

	e := echo.New()
	e.POST("/api/commands", func(c echo.Context) error {
		var cmds []wireCommand
		if err := json.NewDecoder(c.Request().Body).Decode(&cmds); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		mu.Lock()
		received = append(received, cmds)
		mu.Unlock()
		return c.NoContent(http.StatusAccepted)
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, staticToken("tok"), nil)
	moves := []engine.TaskMove{
		{ID: "a", Container: "do-first", Order: 1000},
		{ID: "b", Container: "do-first", Order: 2000},
	}
	if err := client.Apply(context.Background(), moves); err != nil {
		t.Fatalf("apply: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected one request for the whole batch, got %d", len(received))
	}
	cmds := received[0]
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	seenKeys := map[string]bool{}
	var lastTS int64
	for i, cmd := range cmds {
		if cmd.EntityType != entityTypeTask || cmd.Type != commandTypeUpdate {
			t.Fatalf("unexpected command envelope: %+v", cmd)
		}
		if cmd.IdempotencyKey == "" || seenKeys[cmd.IdempotencyKey] {
			t.Fatalf("idempotency keys must be unique and non-empty: %+v", cmds)
		}
		seenKeys[cmd.IdempotencyKey] = true
		if cmd.Timestamp <= lastTS {
			t.Fatalf("timestamps must be strictly increasing: %+v", cmds)
		}
		lastTS = cmd.Timestamp

		var data moveData
		if err := json.Unmarshal(cmd.Data, &data); err != nil {
			t.Fatalf("decode command data: %v", err)
		}
		if data.ID != moves[i].ID || data.Container != moves[i].Container || data.Order != moves[i].Order {
			t.Fatalf("command %d does not match move %+v: %+v", i, moves[i], data)
		}
	}
}

func TestApplyTreatsRejectionAsOpaqueError(t *testing.T) {
	e := echo.New()
	e.POST("/api/commands", func(c echo.Context) error {
		return c.String(http.StatusUnprocessableEntity, "no such task")
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, staticToken("tok"), nil)
	err := client.Apply(context.Background(), []engine.TaskMove{{ID: "a", Container: "inbox", Order: 1}})
	if err == nil {
		t.Fatal("expected an error for a rejected batch")
	}
}

func TestApplyEmptyBatchIsANoOp(t *testing.T) {
	client := NewClient("http://backend.invalid", nil, nil)
	if err := client.Apply(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must not touch the network: %v", err)
	}
}

func TestCommandClockIsStrictlyMonotonic(t *testing.T) {
	var clock commandClock
	prev := clock.next()
	for i := 0; i < 1000; i++ {
		ts := clock.next()
		if ts <= prev {
			t.Fatalf("timestamp went backwards: %d after %d", ts, prev)
		}
		prev = ts
	}
}
