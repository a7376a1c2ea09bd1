package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

var errTest = errors.New("test failure")

func TestInvalidGzipBodyIsRejected(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/drag/start", strings.NewReader("definitely not gzip"))
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
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip, got %d", resp.StatusCode)
	}
}

func TestNoticesDrainClearsPending(t *testing.T) {
	n := NewNotices()
	n.MoveFailed("t1", errTest)
	if got := n.Drain(); len(got) != 1 || got[0].ItemID != "t1" {
		t.Fatalf("unexpected notices: %+v", got)
	}
	if got := n.Drain(); len(got) != 0 {
		t.Fatalf("drain must clear the buffer, got %+v", got)
	}
}

func TestNoticesAwaitWakesOnNewNotice(t *testing.T) {
	n := NewNotices()
	done := make(chan []Notice, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- n.Await(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	n.MoveFailed("t2", errTest)

	select {
	case got := <-done:
		if len(got) != 1 || got[0].ItemID != "t2" {
			t.Fatalf("unexpected notices: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("await never woke up")
	}
}
