package simulate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"saral/pkg/domain"
)

type stateLog struct {
	mu     sync.Mutex
	states []domain.ConnectStatus
}

func (l *stateLog) add(s domain.ConnectState) {
	l.mu.Lock()
	l.states = append(l.states, s.Status)
	l.mu.Unlock()
}

func (l *stateLog) snapshot() []domain.ConnectStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ConnectStatus(nil), l.states...)
}

func TestConnectorTwoStageTimer(t *testing.T) {
	c := NewConnector(domain.ConnectDatabase, 30*time.Millisecond, 40*time.Millisecond)
	log := &stateLog{}
	c.OnChange = log.add
	var connected []string
	c.OnConnected = func(_ context.Context, input string) { connected = append(connected, input) }

	for round := 0; round < 2; round++ {
		start := time.Now()
		if err := c.Submit(context.Background(), "postgresql://u:p@h:5432/db"); err != nil {
			t.Fatalf("round %d submit: %v", round, err)
		}
		if got := c.State(); got.Status != domain.ConnectConnecting || got.Input == "" {
			t.Fatalf("round %d state = %+v, want connecting", round, got)
		}
		if err := c.Submit(context.Background(), "again"); !errors.Is(err, ErrConnectBusy) {
			t.Fatalf("round %d resubmit err = %v, want busy", round, err)
		}
		if err := c.Wait(context.Background()); err != nil {
			t.Fatalf("round %d wait: %v", round, err)
		}
		if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
			t.Fatalf("round %d finished after %v, before both stages", round, elapsed)
		}
		if got := c.State(); got.Status != domain.ConnectIdle || got.Input != "" {
			t.Fatalf("round %d final state = %+v, want idle and cleared", round, got)
		}
	}

	want := []domain.ConnectStatus{
		domain.ConnectConnecting, domain.ConnectConnected, domain.ConnectIdle,
		domain.ConnectConnecting, domain.ConnectConnected, domain.ConnectIdle,
	}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
	if len(connected) != 2 {
		t.Fatalf("connected hook ran %d times, want 2", len(connected))
	}
}

func TestConnectorRejectsBlankInput(t *testing.T) {
	tests := []struct {
		kind domain.ConnectKind
		want error
		msg  string
	}{
		{kind: domain.ConnectWeb, want: ErrInvalidURL, msg: "Please enter a valid URL"},
		{kind: domain.ConnectDatabase, want: ErrInvalidConnectionString, msg: "Please enter a valid connection string"},
	}
	for _, tc := range tests {
		c := NewConnector(tc.kind, 0, 0)
		err := c.Submit(context.Background(), "   ")
		if !errors.Is(err, tc.want) || err.Error() != tc.msg {
			t.Fatalf("%s: err = %v", tc.kind, err)
		}
		if c.State().Status != domain.ConnectIdle {
			t.Fatalf("%s: state changed on invalid input", tc.kind)
		}
	}
}

func TestConnectorCancelReturnsToIdle(t *testing.T) {
	c := NewConnector(domain.ConnectWeb, time.Hour, time.Hour)
	if err := c.Submit(context.Background(), "https://example.gov.in"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	c.Cancel()
	if got := c.State().Status; got != domain.ConnectIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if err := c.Submit(context.Background(), "https://example.gov.in"); err != nil {
		t.Fatalf("submit after cancel: %v", err)
	}
	c.Cancel()
}

func TestConnectedMessage(t *testing.T) {
	if got := ConnectedMessage(domain.ConnectWeb); got != "Web source connected successfully!" {
		t.Fatalf("web message = %q", got)
	}
	if got := ConnectedMessage(domain.ConnectDatabase); got != "Database connected successfully!" {
		t.Fatalf("database message = %q", got)
	}
}
