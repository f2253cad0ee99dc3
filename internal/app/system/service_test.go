package system

import (
	"context"
	"errors"
	"testing"
)

type recordingService struct {
	name     string
	startErr error
	log      *[]string
}

func (r *recordingService) Name() string { return r.name }

func (r *recordingService) Start(_ context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	*r.log = append(*r.log, "start "+r.name)
	return nil
}

func (r *recordingService) Stop(_ context.Context) error {
	*r.log = append(*r.log, "stop "+r.name)
	return nil
}

func TestStartStopOrder(t *testing.T) {
	ctx := context.Background()
	var log []string
	m := NewManager()

	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, log: &log}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	want := []string{"start a", "start b", "start c", "stop c", "stop b", "stop a"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestStartFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	var log []string
	m := NewManager()

	_ = m.Register(&recordingService{name: "a", log: &log})
	_ = m.Register(&recordingService{name: "b", startErr: errors.New("boom"), log: &log})

	if err := m.Start(ctx); err == nil {
		t.Fatal("expected start error")
	}
	want := []string{"start a", "stop a"}
	if len(log) != 2 || log[0] != want[0] || log[1] != want[1] {
		t.Fatalf("log = %v, want %v", log, want)
	}
}

func TestRegisterDuplicateRejected(t *testing.T) {
	var log []string
	m := NewManager()

	if err := m.Register(&recordingService{name: "a", log: &log}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.Register(&recordingService{name: "a", log: &log}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegisterAfterStartRejected(t *testing.T) {
	ctx := context.Background()
	var log []string
	m := NewManager()

	_ = m.Register(&recordingService{name: "a", log: &log})
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Register(&recordingService{name: "b", log: &log}); err == nil {
		t.Fatal("expected registration after start to fail")
	}
}
