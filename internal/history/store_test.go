package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.BeginSession(ctx, "s1", "h264-standard", "/out"); err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	if err := store.RecordJob(ctx, Job{
		SessionID: "s1",
		Input:     "/in/a.mp4",
		Output:    "/out/a.mp4",
		Bytes:     2048,
		Elapsed:   90 * time.Second,
		Status:    "converted",
	}); err != nil {
		t.Fatalf("RecordJob() error = %v", err)
	}
	if err := store.RecordJob(ctx, Job{
		SessionID: "s1",
		Input:     "/in/b.mp4",
		Status:    "failed",
		Error:     "engine execution failed",
	}); err != nil {
		t.Fatalf("RecordJob() error = %v", err)
	}
	if err := store.FinishSession(ctx, "s1", 1, 1); err != nil {
		t.Fatalf("FinishSession() error = %v", err)
	}

	sessions, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	sess := sessions[0]
	if sess.Preset != "h264-standard" || sess.Converted != 1 || sess.Failed != 1 {
		t.Errorf("session = %+v", sess)
	}
	if sess.FinishedAt.IsZero() {
		t.Error("FinishedAt not recorded")
	}

	jobs, err := store.JobsForSession(ctx, "s1")
	if err != nil {
		t.Fatalf("JobsForSession() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Status != "converted" || jobs[0].Bytes != 2048 || jobs[0].Elapsed != 90*time.Second {
		t.Errorf("first job = %+v", jobs[0])
	}
	if jobs[1].Status != "failed" || jobs[1].Error == "" {
		t.Errorf("second job = %+v", jobs[1])
	}
}

func TestRecentSessionsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := store.BeginSession(ctx, id, "h264-standard", "/out"); err != nil {
			t.Fatalf("BeginSession(%s) error = %v", id, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct started_at ordering
	}

	sessions, err := store.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "s3" || sessions[1].ID != "s2" {
		t.Errorf("order = %s, %s; want s3, s2", sessions[0].ID, sessions[1].ID)
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.BeginSession(ctx, "s1", "hevc-high", "/out"); err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	if err := store.RecordJob(ctx, Job{SessionID: "s1", Input: "/in/a.mp4", Status: "converted"}); err != nil {
		t.Fatalf("RecordJob() error = %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	sessions, err := store.RecentSessions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions after clear, want 0", len(sessions))
	}
}

func TestReopenExistingDB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.BeginSession(context.Background(), "s1", "h264-high", "/out"); err != nil {
		t.Fatalf("BeginSession() error = %v", err)
	}
	_ = store.Close()

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer again.Close()

	sessions, err := again.RecentSessions(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions after reopen, want 1", len(sessions))
	}
}
