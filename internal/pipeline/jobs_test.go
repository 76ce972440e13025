package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/docnarrative/internal/analyzer"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	req := Request{Filename: "a.txt", Title: "A", Data: []byte("hello world")}
	j1 := NewJob(req)
	j2 := NewJob(req)

	if j1.ID == "" || j1.ID == j2.ID {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", j1.ID, j2.ID)
	}
	if len(j1.ID) != 36 {
		t.Errorf("expected a UUID, got %q", j1.ID)
	}
	if j1.Status != StatusQueued {
		t.Errorf("expected queued, got %q", j1.Status)
	}
	if j1.ContentHash != ContentHashHex(req.Data) {
		t.Errorf("expected content hash of the data, got %q", j1.ContentHash)
	}
	if got := j1.Request(); got.Filename != "a.txt" || string(got.Data) != "hello world" {
		t.Errorf("expected request to be kept, got %+v", got)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusNormalizing, "normalizing"},
		{StatusTokenizing, "tokenizing"},
		{StatusTokenizing, "chunking"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := &Job{ID: "test-fail", Status: StatusNormalizing, Phase: "normalizing", UpdatedAt: time.Now()}
	job.Fail(errors.New("unsupported node"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.Phase != "normalizing" {
		t.Errorf("expected failing phase to be kept, got %q", snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "unsupported node" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
	if _, ok := job.Result(); ok {
		t.Error("expected no result for a failed job")
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("first")
	job.AddError("second")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "first" {
		t.Errorf("expected first error %q, got %q", "first", snap.Progress.Errors[0])
	}
}

func TestJob_Complete(t *testing.T) {
	job := &Job{ID: "done-test", UpdatedAt: time.Now()}
	res := &analyzer.Result{
		Title:  "Paper",
		Chunks: []analyzer.Chunk{{}, {}},
		Stats:  analyzer.Stats{Sentences: 3, Words: 12},
	}
	job.Complete(res, true)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted || !snap.Reused {
		t.Errorf("expected completed and reused, got %q/%v", snap.Status, snap.Reused)
	}
	if snap.Title != "Paper" {
		t.Errorf("expected title from result, got %q", snap.Title)
	}
	if snap.Progress.Sentences != 3 || snap.Progress.Words != 12 || snap.Progress.Chunks != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	got, ok := job.Result()
	if !ok || got != res {
		t.Error("expected result to be available")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job, got %d", store.Len())
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)
	store.Remember("old-key", &analyzer.Result{})

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)
	store.Remember("new-key", &analyzer.Result{})

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if _, ok := store.Lookup("old-key"); ok {
		t.Error("expected expired result to be cleaned up")
	}
	if _, ok := store.Lookup("new-key"); !ok {
		t.Error("expected fresh result to survive cleanup")
	}
}

func TestJobStore_LookupExpiresWithoutCleanup(t *testing.T) {
	store := NewJobStore(20 * time.Millisecond)
	store.Remember("k", &analyzer.Result{})
	if _, ok := store.Lookup("k"); !ok {
		t.Fatal("expected fresh result")
	}
	time.Sleep(40 * time.Millisecond)
	if _, ok := store.Lookup("k"); ok {
		t.Error("expected stale result to be ignored")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
