package cron_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/tgecho/internal/cron"
	"github.com/flemzord/tgecho/internal/cron/crontest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RegisterJob_DuplicateName(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(quietLogger())

	if err := s.RegisterJob(&crontest.MockJob{NameVal: "probe", ScheduleVal: "* * * * *"}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "probe", ScheduleVal: "* * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if s.Jobs() != 1 {
		t.Errorf("Jobs() = %d, want 1", s.Jobs())
	}
}

func TestScheduler_RegisterJob_InvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(quietLogger())
	if err := s.RegisterJob(&crontest.MockJob{NameVal: "bad", ScheduleVal: "invalid"}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"*/5 * * * *", "0 0 * * *", "@every 30s", "@hourly"} {
		if err := cron.ValidateSchedule(expr); err != nil {
			t.Errorf("ValidateSchedule(%q) error: %v", expr, err)
		}
	}
	for _, expr := range []string{"", "60 * * * *", "* * * * * *", "@sometimes"} {
		if err := cron.ValidateSchedule(expr); err == nil {
			t.Errorf("ValidateSchedule(%q) should fail", expr)
		}
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(quietLogger())
	_ = s.RegisterJob(&crontest.MockJob{NameVal: "noop", ScheduleVal: "* * * * *"})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestScheduler_ImmediateRun(t *testing.T) {
	t.Parallel()

	job := &crontest.MockJob{NameVal: "probe", ScheduleVal: "@hourly"}
	s := cron.NewScheduler(quietLogger(), cron.WithImmediateRun())
	_ = s.RegisterJob(job)

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Stop waits for the immediate run.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if job.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", job.CallCount())
	}
}

func TestScheduler_RunNow(t *testing.T) {
	t.Parallel()

	job := &crontest.MockJob{NameVal: "probe", ScheduleVal: "@hourly"}
	s := cron.NewScheduler(quietLogger())
	_ = s.RegisterJob(job)

	if !s.RunNow(context.Background(), "probe") {
		t.Fatal("RunNow(probe) = false, want true")
	}
	if s.RunNow(context.Background(), "missing") {
		t.Error("RunNow(missing) = true, want false")
	}
	if job.CallCount() != 1 {
		t.Errorf("CallCount() = %d, want 1", job.CallCount())
	}
}

func TestScheduler_NoOverlap(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32

	job := &crontest.MockJob{
		NameVal:     "slow",
		ScheduleVal: "@hourly",
		RunFunc: func(_ context.Context) error {
			if runs.Add(1) == 1 {
				close(started)
			}
			<-release
			return nil
		},
	}
	s := cron.NewScheduler(quietLogger())
	_ = s.RegisterJob(job)

	done := make(chan bool, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	if s.RunNow(context.Background(), "slow") {
		t.Error("overlapping RunNow should be skipped")
	}
	close(release)
	if !<-done {
		t.Error("first RunNow should report a run")
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestScheduler_JobTimeout(t *testing.T) {
	t.Parallel()

	var deadlineSet atomic.Bool
	job := &crontest.MockJob{
		NameVal:     "bounded",
		ScheduleVal: "@hourly",
		RunFunc: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			deadlineSet.Store(ok)
			return errors.New("job failed")
		},
	}
	s := cron.NewScheduler(quietLogger(), cron.WithJobTimeout(time.Second))
	_ = s.RegisterJob(job)

	s.RunNow(context.Background(), "bounded")
	if !deadlineSet.Load() {
		t.Error("job context should carry a deadline")
	}
}

func TestScheduler_NilLogger(t *testing.T) {
	t.Parallel()

	// A nil logger falls back to slog.Default() and must not panic.
	s := cron.NewScheduler(nil)
	job := &crontest.MockJob{NameVal: "probe", ScheduleVal: "@hourly"}
	_ = s.RegisterJob(job)
	if !s.RunNow(context.Background(), "probe") {
		t.Fatal("RunNow(probe) = false, want true")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(quietLogger())
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
