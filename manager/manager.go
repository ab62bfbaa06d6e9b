// Package manager owns the single connection to an Android TV.
//
// A Manager holds at most one atv.Remote. Every host-facing call runs as a
// job on the manager's executor and is bounded by Config.CallTimeout. Key
// presses reconnect first when the link has been idle for PingInterval, and
// retry with a quick reconnect when the library rejects them.
//
// The remote handle is guarded by one mutex that is never held across a call
// into the library. Commands are serialized by a separate one-slot semaphore
// acquired inside the job, so a stuck send delays later sends only until
// their own deadline. The last-activity time is a separate atomic value.
package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/TienBeta/ggtv-kit/atv"
	"github.com/TienBeta/ggtv-kit/config"
	"github.com/TienBeta/ggtv-kit/executor"
	"github.com/TienBeta/ggtv-kit/log"
	"github.com/TienBeta/ggtv-kit/retry"
)

// Options configures New.
type Options struct {
	// Config defaults to config.Default().
	Config *config.Config
	// Dialer creates remotes. Required.
	Dialer atv.Dialer
	// Metrics defaults to unregistered collectors.
	Metrics *Metrics
	// Listener receives state transitions. Optional.
	Listener StateListener
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager is the connection manager. It is safe for concurrent use.
type Manager struct {
	cfg     config.Config
	dial    atv.Dialer
	now     func() time.Time
	exec    *executor.Executor
	limiter *rate.Limiter
	metrics *Metrics

	connectPolicy retry.Policy
	sendKeyPolicy retry.Policy

	mu      sync.Mutex
	remote  atv.Remote
	session string

	// sendSem serializes commands on the current remote.
	sendSem *semaphore.Weighted

	lastActivity atomic.Time
	state        atomic.Int32
	pairing      atomic.Int32
	closed       atomic.Bool

	listenerMu sync.RWMutex
	listener   StateListener
}

// New validates opts and starts the manager's executor.
func New(opts Options) (*Manager, error) {
	if opts.Dialer == nil {
		return nil, errors.New("remote dialer is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	limit := rate.Inf
	if cfg.CommandRate > 0 {
		limit = rate.Limit(cfg.CommandRate)
	}
	burst := cfg.CommandBurst
	if burst < 1 {
		burst = 1
	}

	m := &Manager{
		cfg:     *cfg,
		dial:    opts.Dialer,
		now:     opts.Now,
		exec:    executor.New(cfg.Workers),
		limiter: rate.NewLimiter(limit, burst),
		metrics: opts.Metrics,
		connectPolicy: retry.Policy{
			MaxAttempts: cfg.ConnectAttempts,
			Backoff:     retry.Constant(cfg.ConnectBackoff),
			Retryable: func(err error) bool {
				return atv.Retryable(err) || errors.Is(err, atv.ErrInvalidAuth)
			},
		},
		sendKeyPolicy: retry.Policy{
			MaxAttempts: cfg.SendKeyAttempts,
		},
		sendSem:  semaphore.NewWeighted(1),
		listener: opts.Listener,
	}
	return m, nil
}

// Connected reports whether a remote handle is held.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remote != nil
}

// Close disconnects, ignoring disconnect errors, and stops the executor,
// waiting for running jobs. After Close every command fails with
// ErrNotConnected and Connect fails with executor.ErrClosed.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	if r, _ := m.takeRemote(); r != nil {
		if err := r.Disconnect(); err != nil {
			log.Debugf("cleanup: disconnect: %v", err)
		}
		m.setState(StateDisconnected, nil)
	}
	m.exec.Shutdown()
}

func (m *Manager) current() (atv.Remote, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remote, m.session
}

// holds reports whether session still owns the handle.
func (m *Manager) holds(session string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remote != nil && m.session == session
}

// withSendLock runs fn on the current remote once no other command is in
// flight. Waiting ends with ctx.
func (m *Manager) withSendLock(ctx context.Context, fn func(r atv.Remote) error) error {
	if err := m.sendSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.sendSem.Release(1)
	r, _ := m.current()
	if r == nil {
		return ErrNotConnected
	}
	return fn(r)
}

// replaceRemote installs r and returns the handle it replaced.
func (m *Manager) replaceRemote(r atv.Remote, session string) atv.Remote {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.remote
	m.remote = r
	m.session = session
	return prev
}

func (m *Manager) takeRemote() (atv.Remote, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, session := m.remote, m.session
	m.remote = nil
	m.session = ""
	return r, session
}

// dropSession clears the handle only if it still belongs to session.
func (m *Manager) dropSession(session string) atv.Remote {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != session {
		return nil
	}
	r := m.remote
	m.remote = nil
	m.session = ""
	return r
}

func (m *Manager) touch() {
	m.lastActivity.Store(m.now())
}

// LastActivity returns the time of the last successful command, or the zero
// time if none was sent.
func (m *Manager) LastActivity() time.Time {
	return m.lastActivity.Load()
}
