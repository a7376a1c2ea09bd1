package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
)

type stubBackend struct {
	mu      sync.Mutex
	err     error
	batches [][]engine.TaskMove
}

func (b *stubBackend) Apply(_ context.Context, moves []engine.TaskMove) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, append([]engine.TaskMove(nil), moves...))
	return b.err
}

func (b *stubBackend) batchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

func (b *stubBackend) setErr(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

type fixture struct {
	server  *httptest.Server
	boards  *engine.BoardStore
	backend *stubBackend
	notices *Notices
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	boards := engine.NewBoardStore(domain.NewBoard([]domain.Task{
		{ID: "t1", Container: "backlog", Order: 1000, Weight: 1},
		{ID: "t2", Container: "backlog", Order: 2000, Weight: 1},
		{ID: "t3", Container: "backlog", Order: 3000, Weight: 1},
	}))
	containers := domain.NewContainerSet()
	containers.AddList("backlog", "Backlog")

	backend := &stubBackend{}
	notices := NewNotices()
	logger := log.New()
	logger.SetOutput(io.Discard)

	coord := engine.NewCoordinator(boards, containers, backend, notices, nil, logger, engine.CoordinatorConfig{})
	t.Cleanup(coord.Close)
	session := engine.NewSession(boards, coord, logger, engine.DragConfig{})

	e := echo.New()
	Register(e, boards, session, coord, containers, notices, logger)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &fixture{server: server, boards: boards, backend: backend, notices: notices}
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	buf := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(f.server.URL+path, "application/json", buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	if resp := f.get(t, "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestGetBoardListsContainersInOrder(t *testing.T) {
	f := newFixture(t)
	var resp boardResponse
	if r := f.get(t, "/api/board", &resp); r.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", r.StatusCode)
	}
	if len(resp.Containers) != 5 {
		t.Fatalf("expected 4 quadrants + 1 list, got %d", len(resp.Containers))
	}
	last := resp.Containers[4]
	if last.ID != "backlog" || len(last.Tasks) != 3 {
		t.Fatalf("unexpected backlog container: %+v", last)
	}
	if last.Tasks[0].ID != "t1" || last.Tasks[2].ID != "t3" {
		t.Fatalf("tasks must come back in order-key order: %+v", last.Tasks)
	}
}

func TestGetContainerUnknown(t *testing.T) {
	f := newFixture(t)
	if resp := f.get(t, "/api/board/nope", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDragLifecycleMovesTheTask(t *testing.T) {
	f := newFixture(t)

	if resp := f.post(t, "/api/drag/start", dragStartRequest{ItemID: "t3", X: 5, Y: 25}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("start: expected 204, got %d", resp.StatusCode)
	}

	rects := []engine.Rect{
		{Top: 0, Height: 10},
		{Top: 10, Height: 10},
		{Top: 20, Height: 10},
	}
	var hover hoverResponse
	resp := f.post(t, "/api/drag/move", dragMoveRequest{Container: "backlog", Rects: rects, X: 5, Y: 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("move: expected 200, got %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&hover); err != nil {
		t.Fatalf("decode hover: %v", err)
	}
	if !hover.Hovering || hover.Container != "backlog" || hover.GapIndex != 0 {
		t.Fatalf("unexpected hover: %+v", hover)
	}

	if resp := f.post(t, "/api/drag/drop", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("drop: expected 202, got %d", resp.StatusCode)
	}

	moved, _ := f.boards.Board().Get("t3")
	if moved.Order != 500 {
		t.Fatalf("expected t3 moved to the top at key 500, got %+v", moved)
	}
	waitFor(t, "backend confirmation", func() bool { return f.backend.batchCount() == 1 })
}

func TestDragMoveAcceptsGzipBodies(t *testing.T) {
	f := newFixture(t)
	if resp := f.post(t, "/api/drag/start", dragStartRequest{ItemID: "t1"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("start: expected 204, got %d", resp.StatusCode)
	}

	payload, err := json.Marshal(dragMoveRequest{Container: "backlog", Rects: []engine.Rect{{Top: 0, Height: 10}}, Y: 50})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/drag/move", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for gzip body, got %d", resp.StatusCode)
	}
}

func TestConcurrentDragIsRejected(t *testing.T) {
	f := newFixture(t)
	if resp := f.post(t, "/api/drag/start", dragStartRequest{ItemID: "t1"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("first start: %d", resp.StatusCode)
	}
	if resp := f.post(t, "/api/drag/start", dragStartRequest{ItemID: "t2"}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second start must be rejected with 409, got %d", resp.StatusCode)
	}
}

func TestDragCancelHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	if resp := f.post(t, "/api/drag/start", dragStartRequest{ItemID: "t1"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("start: %d", resp.StatusCode)
	}
	if resp := f.post(t, "/api/drag/cancel", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: %d", resp.StatusCode)
	}
	if f.backend.batchCount() != 0 {
		t.Fatal("cancel must not reach the backend")
	}
}

func TestDirectMoveEndpoint(t *testing.T) {
	f := newFixture(t)
	if resp := f.post(t, "/api/move", moveRequest{ItemID: "t1", Container: domain.QuadrantDoFirst, InsertAt: 0}); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	moved, _ := f.boards.Board().Get("t1")
	if moved.Container != domain.QuadrantDoFirst || !moved.Urgent || !moved.Important {
		t.Fatalf("expected quadrant move with forced flags, got %+v", moved)
	}
}

func TestNoticesSurfaceBackendFailures(t *testing.T) {
	f := newFixture(t)
	f.backend.setErr(errors.New("backend rejected"))

	if resp := f.post(t, "/api/move", moveRequest{ItemID: "t1", Container: "backlog", InsertAt: 2}); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("move: %d", resp.StatusCode)
	}

	waitFor(t, "failure notice", func() bool {
		var notices []Notice
		resp := f.get(t, "/api/notices", &notices)
		return resp.StatusCode == http.StatusOK && len(notices) == 1 && notices[0].ItemID == "t1"
	})
}
