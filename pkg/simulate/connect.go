package simulate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"saral/internal/task"
	"saral/pkg/domain"
)

const (
	DefaultConnectDelay = 1500 * time.Millisecond
	DefaultResetDelay   = 2000 * time.Millisecond
)

var (
	ErrInvalidURL              = errors.New("Please enter a valid URL")
	ErrInvalidConnectionString = errors.New("Please enter a valid connection string")
	ErrConnectBusy             = errors.New("a connection is already in progress")
)

// ConnectedMessage is the toast for a connected source.
func ConnectedMessage(kind domain.ConnectKind) string {
	if kind == domain.ConnectDatabase {
		return "Database connected successfully!"
	}
	return "Web source connected successfully!"
}

// Connector runs the two-stage connect timer for one panel: connecting, then
// connected after ConnectDelay, then idle after ResetDelay.
type Connector struct {
	kind         domain.ConnectKind
	connectDelay time.Duration
	resetDelay   time.Duration

	// OnChange sees every state transition.
	OnChange func(domain.ConnectState)
	// OnConnected runs when the connected stage is reached.
	OnConnected func(ctx context.Context, input string)

	mu    sync.Mutex
	state domain.ConnectState
	run   *task.Task[struct{}]
}

// NewConnector builds an idle connector. Non-positive delays use the defaults.
func NewConnector(kind domain.ConnectKind, connectDelay, resetDelay time.Duration) *Connector {
	if connectDelay <= 0 {
		connectDelay = DefaultConnectDelay
	}
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	return &Connector{
		kind:         kind,
		connectDelay: connectDelay,
		resetDelay:   resetDelay,
		state:        domain.ConnectState{Kind: kind, Status: domain.ConnectIdle},
	}
}

// State returns the current panel state.
func (c *Connector) State() domain.ConnectState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit starts a connect. The timers run on ctx, not on the caller's request.
func (c *Connector) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		if c.kind == domain.ConnectDatabase {
			return ErrInvalidConnectionString
		}
		return ErrInvalidURL
	}
	c.mu.Lock()
	if c.state.Status != domain.ConnectIdle {
		c.mu.Unlock()
		return ErrConnectBusy
	}
	c.state = domain.ConnectState{Kind: c.kind, Status: domain.ConnectConnecting, Input: input}
	snapshot := c.state
	c.run = task.Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.drive(ctx, input)
	})
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

func (c *Connector) drive(ctx context.Context, input string) error {
	if err := task.Sleep(ctx, c.connectDelay); err != nil {
		c.reset()
		return err
	}
	c.set(domain.ConnectConnected, input)
	if c.OnConnected != nil {
		c.OnConnected(ctx, input)
	}
	if err := task.Sleep(ctx, c.resetDelay); err != nil {
		c.reset()
		return err
	}
	c.reset()
	return nil
}

// Wait blocks until the running connect, if any, has finished.
func (c *Connector) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run == nil {
		return nil
	}
	_, err := run.Wait(ctx)
	return err
}

// Cancel stops a running connect and returns the panel to idle.
func (c *Connector) Cancel() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run != nil {
		run.Cancel()
		<-run.Done()
	}
}

func (c *Connector) reset() {
	c.set(domain.ConnectIdle, "")
}

func (c *Connector) set(status domain.ConnectStatus, input string) {
	c.mu.Lock()
	c.state = domain.ConnectState{Kind: c.kind, Status: status, Input: input}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

func (c *Connector) notify(state domain.ConnectState) {
	if c.OnChange != nil {
		c.OnChange(state)
	}
}
