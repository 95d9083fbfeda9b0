package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Supervisor errors.
var (
	ErrClosed           = errors.New("supervisor closed")
	ErrAlreadyConnected = errors.New("already connected")
)

// DefaultAttemptTimeout bounds one reconnect attempt.
const DefaultAttemptTimeout = 10 * time.Second

// State is the supervised session state.
type State uint8

const (
	// StateDisconnected indicates no session and no pending reconnect.
	StateDisconnected State = iota

	// StateConnecting indicates a caller-initiated connect is running.
	StateConnecting

	// StateConnected indicates an established session.
	StateConnected

	// StateReconnecting indicates the session was lost and retries are
	// scheduled.
	StateReconnecting

	// StateClosed indicates the supervisor has shut down.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc establishes a session.
type ConnectFunc func(ctx context.Context) error

// CheckFunc probes an established session. An error means it is gone.
type CheckFunc func(ctx context.Context) error

// Config configures a Supervisor.
type Config struct {
	Backoff BackoffConfig

	// CheckInterval is the health check period. Zero disables checks.
	CheckInterval time.Duration

	// AttemptTimeout bounds each reconnect attempt and health check.
	AttemptTimeout time.Duration

	// Logger is optional.
	Logger *slog.Logger
}

// DefaultConfig returns a config with the default backoff, no health
// checks and a 10 second attempt timeout.
func DefaultConfig() Config {
	return Config{
		Backoff:        DefaultBackoffConfig(),
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Supervisor runs a connect function and restores the session when it is
// lost.
type Supervisor struct {
	mu sync.RWMutex

	state         State
	autoReconnect bool
	backoff       *Backoff
	connect       ConnectFunc
	check         CheckFunc
	config        Config

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	startOnce   sync.Once
	reconnectCh chan struct{}

	onStateChange  func(from, to State)
	onLost         func(err error)
	onReconnecting func(attempt int, delay time.Duration)
}

// NewSupervisor creates a supervisor around connect. Call Start to enable
// health checks and reconnection.
func NewSupervisor(connect ConnectFunc, config Config) *Supervisor {
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = DefaultAttemptTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		state:         StateDisconnected,
		autoReconnect: true,
		backoff:       NewBackoffWithConfig(config.Backoff),
		connect:       connect,
		config:        config,
		ctx:           ctx,
		cancel:        cancel,
		reconnectCh:   make(chan struct{}, 1),
	}
}

// SetCheck installs the health check run every CheckInterval.
func (s *Supervisor) SetCheck(fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.check = fn
}

// SetAutoReconnect enables or disables reconnection after a loss.
func (s *Supervisor) SetAutoReconnect(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoReconnect = enabled
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the session is established.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// Attempts returns the reconnect attempts since the last success.
func (s *Supervisor) Attempts() int {
	return s.backoff.Attempts()
}

// Connect runs the connect function once. A failure leaves the
// supervisor disconnected; it does not schedule retries.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	}
	from := s.state
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(from, StateConnecting)

	if err := s.connect(ctx); err != nil {
		if s.transition(StateConnecting, StateDisconnected) {
			s.notifyState(StateConnecting, StateDisconnected)
		}
		return err
	}

	if !s.transition(StateConnecting, StateConnected) {
		return ErrClosed
	}
	s.backoff.Reset()
	s.notifyState(StateConnecting, StateConnected)
	return nil
}

// Disconnect marks the session closed by the owner. No reconnect follows.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	from := s.state
	if from == StateClosed || from == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.mu.Unlock()
	s.notifyState(from, StateDisconnected)
}

// NotifyLost reports that the established session went away. With
// auto-reconnect enabled the reconnect loop takes over.
func (s *Supervisor) NotifyLost(reason error) {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	to := StateDisconnected
	if s.autoReconnect {
		to = StateReconnecting
	}
	s.state = to
	onLost := s.onLost
	s.mu.Unlock()

	if s.config.Logger != nil {
		s.config.Logger.Info("session lost", "reason", reason, "reconnect", to == StateReconnecting)
	}
	s.notifyState(StateConnected, to)
	if onLost != nil {
		onLost(reason)
	}
	if to == StateReconnecting {
		select {
		case s.reconnectCh <- struct{}{}:
		default:
		}
	}
}

// Start launches the background loop running health checks and
// reconnects. Further calls are no-ops.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Close stops the background loop and waits for it.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = StateClosed
	s.mu.Unlock()

	s.notifyState(from, StateClosed)
	s.cancel()
	s.wg.Wait()
}

// OnStateChange sets the state transition callback.
func (s *Supervisor) OnStateChange(fn func(from, to State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnLost sets the callback run when an established session is lost,
// before any reconnect attempt.
func (s *Supervisor) OnLost(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLost = fn
}

// OnReconnecting sets the callback run before each reconnect delay.
func (s *Supervisor) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnecting = fn
}

func (s *Supervisor) run() {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.config.CheckInterval > 0 {
		ticker := time.NewTicker(s.config.CheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-tick:
			s.runCheck()
		case <-s.reconnectCh:
			s.reconnect()
		}
	}
}

func (s *Supervisor) runCheck() {
	s.mu.RLock()
	check, state := s.check, s.state
	s.mu.RUnlock()
	if check == nil || state != StateConnected {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.AttemptTimeout)
	err := check(ctx)
	cancel()
	if err != nil && s.ctx.Err() == nil {
		s.NotifyLost(err)
	}
}

func (s *Supervisor) reconnect() {
	for {
		if s.State() != StateReconnecting {
			return
		}

		delay := s.backoff.Next()
		s.mu.RLock()
		onReconnecting := s.onReconnecting
		s.mu.RUnlock()
		if onReconnecting != nil {
			onReconnecting(s.backoff.Attempts(), delay)
		}

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(delay):
		}
		if s.State() != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, s.config.AttemptTimeout)
		err := s.connect(ctx)
		cancel()
		if err != nil {
			if s.config.Logger != nil {
				s.config.Logger.Debug("reconnect failed", "attempt", s.backoff.Attempts(), "error", err)
			}
			continue
		}

		if !s.transition(StateReconnecting, StateConnected) {
			return
		}
		s.backoff.Reset()
		s.notifyState(StateReconnecting, StateConnected)
		return
	}
}

// transition moves from -> to if the state is still from.
func (s *Supervisor) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Supervisor) notifyState(from, to State) {
	s.mu.RLock()
	fn := s.onStateChange
	s.mu.RUnlock()
	if fn != nil {
		fn(from, to)
	}
}
