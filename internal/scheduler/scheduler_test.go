package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New(time.UTC, testLogger())
	s.SetJob(func(context.Context) error { return nil })
	if err := s.Start("not a cron spec"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if s.IsRunning() {
		t.Fatalf("scheduler must not run after invalid spec")
	}
}

func TestStartWithoutJobIsNoop(t *testing.T) {
	s := New(time.UTC, testLogger())
	if err := s.Start("0 9 * * *"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("no entries expected without a job")
	}
}

func TestStartAndStop(t *testing.T) {
	s := New(time.UTC, testLogger())
	s.SetJob(func(context.Context) error { return nil })
	if err := s.Start("0 9 * * 1-5"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected a registered entry")
	}
	s.Stop()
	if s.ctx.Err() == nil {
		t.Fatalf("job context must be cancelled on stop")
	}
	if s.IsRunning() {
		t.Fatalf("stopped scheduler must not report running")
	}
}

func TestRunInvokesJob(t *testing.T) {
	s := New(time.UTC, testLogger())
	calls := 0
	s.SetJob(func(ctx context.Context) error {
		calls++
		if ctx.Err() != nil {
			t.Fatalf("job context cancelled early")
		}
		return errors.New("post failed")
	})
	s.run()
	s.run()
	if calls != 2 {
		t.Fatalf("want 2 calls, got %d", calls)
	}
}
