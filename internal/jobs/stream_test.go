package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// --- WatchState Tests ---

func TestWatchState_UnknownJob(t *testing.T) {
	s := New(Config{Engine: okEngine()})

	if _, err := s.WatchState(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestWatchState_ReplaysThenCloses(t *testing.T) {
	s := New(Config{Engine: okEngine()})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	// Finish the job first: a late subscriber still gets the terminal state.
	states, _ := s.WatchState(context.Background(), id)
	if err := s.Run(id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	collectStates(t, states)

	late, err := s.WatchState(context.Background(), id)
	if err != nil {
		t.Fatalf("WatchState failed: %v", err)
	}
	got := collectStates(t, late)
	if len(got) != 1 || got[0] != domain.JobStateDone {
		t.Errorf("late subscriber states = %v, want [DONE]", got)
	}
}

func TestWatchState_CancelledJob(t *testing.T) {
	s := New(Config{Engine: okEngine()})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	states, _ := s.WatchState(context.Background(), id)
	if _, err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	got := collectStates(t, states)
	want := []domain.JobState{
		domain.JobStateStarting,
		domain.JobStateCancelling,
		domain.JobStateCancelled,
	}
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestWatchState_ContextCancelUnsubscribes(t *testing.T) {
	gate := newGateEngine()
	defer close(gate.release)

	s := New(Config{Engine: gate})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	states, _ := s.WatchState(ctx, id)
	if err := s.Run(id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Drain the replayed state, then drop the watcher mid-stream.
	<-states
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-states:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not close after context cancel")
		}
	}
}

// --- WatchMessages Tests ---

func TestWatchMessages_AfterTerminal_YieldsCachedLogAndState(t *testing.T) {
	s := New(Config{Engine: failEngine("kaput")})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	states, _ := s.WatchState(context.Background(), id)
	if err := s.Run(id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	collectStates(t, states)

	messages, err := s.WatchMessages(context.Background(), id)
	if err != nil {
		t.Fatalf("WatchMessages failed: %v", err)
	}
	got := collectMessages(t, messages)

	if len(got) != 2 {
		t.Fatalf("got %d messages, want cached log and the replayed terminal state", len(got))
	}
	if got[0].Log == nil || !strings.Contains(got[0].Log.Text, "kaput") {
		t.Errorf("first message = %+v, want cached error log", got[0])
	}
	if !got[1].IsState() || got[1].State != domain.JobStateFailed {
		t.Errorf("second message = %+v, want replayed state FAILED", got[1])
	}
}

func TestWatchMessages_AfterTerminal_NoLogs(t *testing.T) {
	s := New(Config{Engine: okEngine()})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	if _, err := s.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	messages, err := s.WatchMessages(context.Background(), id)
	if err != nil {
		t.Fatalf("WatchMessages failed: %v", err)
	}
	got := collectMessages(t, messages)

	if len(got) != 1 {
		t.Fatalf("got %d messages, want only the replayed terminal state", len(got))
	}
	if !got[0].IsState() || got[0].State != domain.JobStateCancelled {
		t.Errorf("message = %+v, want state CANCELLED", got[0])
	}
}

func TestWatchMessages_ChronologicalOrder(t *testing.T) {
	eng := engineFunc(func(ctx context.Context, _ json.RawMessage, _ map[string]any) error {
		logger := telemetry.FromContext(ctx)
		logger.Info("first")
		logger.Warn("second")
		return nil
	})
	s := New(Config{Engine: eng})
	id, _, _ := s.Prepare(context.Background(), "job", nil, nil)

	messages, _ := s.WatchMessages(context.Background(), id)
	if err := s.Run(id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := collectMessages(t, messages)

	var logs []string
	var seqs []int64
	for _, msg := range got {
		if msg.Log != nil {
			logs = append(logs, msg.Log.Text)
			seqs = append(seqs, msg.Log.Seq)
		}
	}

	if len(logs) != 3 {
		t.Fatalf("log messages = %v, want 3", logs)
	}
	if !strings.Contains(logs[0], "first") || !strings.Contains(logs[1], "second") {
		t.Errorf("logs out of order: %v", logs)
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("seqs not increasing: %v", seqs)
		}
	}
	if final := got[len(got)-1]; !final.IsState() || final.State != domain.JobStateDone {
		t.Errorf("final message = %+v, want state DONE", final)
	}
}

func TestWatchMessages_TwoJobs_NoCrossContamination(t *testing.T) {
	eng := engineFunc(func(ctx context.Context, pipeline json.RawMessage, _ map[string]any) error {
		telemetry.FromContext(ctx).Info(string(pipeline))
		return nil
	})
	s := New(Config{Engine: eng})

	idA, _, _ := s.Prepare(context.Background(), "a", json.RawMessage(`"alpha"`), nil)
	idB, _, _ := s.Prepare(context.Background(), "b", json.RawMessage(`"beta"`), nil)

	msgsA, _ := s.WatchMessages(context.Background(), idA)
	msgsB, _ := s.WatchMessages(context.Background(), idB)

	if err := s.Run(idA); err != nil {
		t.Fatalf("Run A failed: %v", err)
	}
	if err := s.Run(idB); err != nil {
		t.Fatalf("Run B failed: %v", err)
	}

	gotA := collectMessages(t, msgsA)
	gotB := collectMessages(t, msgsB)

	for _, msg := range gotA {
		if msg.Log != nil && strings.Contains(msg.Log.Text, "beta") {
			t.Errorf("job A stream leaked job B log: %q", msg.Log.Text)
		}
	}
	for _, msg := range gotB {
		if msg.Log != nil && strings.Contains(msg.Log.Text, "alpha") {
			t.Errorf("job B stream leaked job A log: %q", msg.Log.Text)
		}
	}
}

// --- End-to-end ---

func TestEndToEnd_Wordcount(t *testing.T) {
	eng := engineFunc(func(ctx context.Context, pipeline json.RawMessage, _ map[string]any) error {
		telemetry.FromContext(ctx).Info("counting words")
		return nil
	})
	s := New(Config{Engine: eng})

	id, token, err := s.Prepare(context.Background(), "wordcount", json.RawMessage(`{}`), map[string]any{"runner": "local"})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if token == "" {
		t.Error("staging token should not be empty")
	}

	states, _ := s.WatchState(context.Background(), id)
	if err := s.Run(id); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	state, err := s.GetState(id)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state != domain.JobStateStarting && state != domain.JobStateDone {
		t.Errorf("immediate state = %s, want STARTING or DONE", state)
	}

	got := collectStates(t, states)
	if got[len(got)-1] != domain.JobStateDone {
		t.Errorf("final state = %s, want DONE", got[len(got)-1])
	}
}
