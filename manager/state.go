package manager

// ConnectionState is the manager's view of the link to the TV.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StatePairingRequired
	StateConnectError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePairingRequired:
		return "pairing_required"
	case StateConnectError:
		return "connect_error"
	default:
		return "unknown"
	}
}

// PairingState tracks the last pairing attempt.
type PairingState int32

const (
	PairingNone PairingState = iota
	PairingSuccess
	PairingFailed
)

func (s PairingState) String() string {
	switch s {
	case PairingNone:
		return "none"
	case PairingSuccess:
		return "success"
	case PairingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateListener receives state transitions. Callbacks run on the goroutine
// that caused the transition and must not call back into the Manager.
type StateListener interface {
	ConnectionStateChanged(state ConnectionState, err error)
	PairingStateChanged(state PairingState, err error)
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	return ConnectionState(m.state.Load())
}

// PairingState returns the result of the last pairing attempt.
func (m *Manager) PairingState() PairingState {
	return PairingState(m.pairing.Load())
}

// SetListener installs l, replacing any previous listener. Nil removes it.
func (m *Manager) SetListener(l StateListener) {
	m.listenerMu.Lock()
	m.listener = l
	m.listenerMu.Unlock()
}

func (m *Manager) currentListener() StateListener {
	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	return m.listener
}

func (m *Manager) setState(s ConnectionState, err error) {
	m.state.Store(int32(s))
	if l := m.currentListener(); l != nil {
		l.ConnectionStateChanged(s, err)
	}
}

func (m *Manager) setPairing(s PairingState, err error) {
	m.pairing.Store(int32(s))
	if l := m.currentListener(); l != nil {
		l.PairingStateChanged(s, err)
	}
}
