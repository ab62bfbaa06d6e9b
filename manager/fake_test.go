package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TienBeta/ggtv-kit/atv"
	"github.com/TienBeta/ggtv-kit/config"
)

type fakeRemote struct {
	mu sync.Mutex

	generated       bool
	genErr          error
	connectErrs     []error
	startPairingErr error
	finishErr       error
	sendErrs        []error
	blockConnect    bool
	disconnectErr   error
	// connectGate and sendGate, when set, hold Connect and SendKeyCommand
	// until closed, ignoring ctx like a library that does not support it.
	connectGate chan struct{}
	sendGate    chan struct{}

	info   *atv.DeviceInfo
	volume *atv.VolumeInfo
	on     bool
	app    string

	connects       int
	keepAlive      int
	disconnects    int
	pairingStarted int
	pairingCodes   []string
	sendCalls      int
	sent           []string
	texts          []string
	links          []string
}

var _ atv.Remote = (*fakeRemote)(nil)

func (f *fakeRemote) GenerateCertIfMissing(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generated, f.genErr
}

func (f *fakeRemote) NameAndMAC(context.Context) (string, string, error) {
	return "Living Room TV", "AA:BB:CC:DD:EE:FF", nil
}

func (f *fakeRemote) StartPairing(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairingStarted++
	return f.startPairingErr
}

func (f *fakeRemote) FinishPairing(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairingCodes = append(f.pairingCodes, code)
	return f.finishErr
}

func (f *fakeRemote) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	block := f.blockConnect
	gate := f.connectGate
	var err error
	if len(f.connectErrs) > 0 {
		err = f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakeRemote) KeepReconnecting() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepAlive++
}

func (f *fakeRemote) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return f.disconnectErr
}

func (f *fakeRemote) SendKeyCommand(command string) error {
	f.mu.Lock()
	f.sendCalls++
	gate := f.sendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, command)
	return nil
}

func (f *fakeRemote) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeRemote) SendLaunchAppCommand(link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links = append(f.links, link)
	return nil
}

func (f *fakeRemote) DeviceInfo() *atv.DeviceInfo { return f.info }
func (f *fakeRemote) IsOn() bool                  { return f.on }
func (f *fakeRemote) CurrentApp() string          { return f.app }
func (f *fakeRemote) VolumeInfo() *atv.VolumeInfo { return f.volume }

func (f *fakeRemote) snapshot() fakeRemote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeRemote{
		connects:       f.connects,
		keepAlive:      f.keepAlive,
		disconnects:    f.disconnects,
		pairingStarted: f.pairingStarted,
		pairingCodes:   append([]string(nil), f.pairingCodes...),
		sendCalls:      f.sendCalls,
		sent:           append([]string(nil), f.sent...),
		texts:          append([]string(nil), f.texts...),
		links:          append([]string(nil), f.links...),
	}
}

type dialCall struct {
	clientName, certFile, keyFile, host string
}

type fakeDialer struct {
	mu      sync.Mutex
	remotes []*fakeRemote
	next    func() *fakeRemote
	calls   []dialCall
}

func (d *fakeDialer) dial(clientName, certFile, keyFile, host string) (atv.Remote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dialCall{clientName, certFile, keyFile, host})
	r := &fakeRemote{}
	if d.next != nil {
		r = d.next()
	}
	d.remotes = append(d.remotes, r)
	return r, nil
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stateEvent struct {
	conn    ConnectionState
	pairing PairingState
	isConn  bool
}

type recordingListener struct {
	mu     sync.Mutex
	events []stateEvent
}

func (l *recordingListener) ConnectionStateChanged(s ConnectionState, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, stateEvent{conn: s, isConn: true})
}

func (l *recordingListener) PairingStateChanged(s PairingState, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, stateEvent{pairing: s})
}

func (l *recordingListener) connectionStates() []ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ConnectionState
	for _, e := range l.events {
		if e.isConn {
			out = append(out, e.conn)
		}
	}
	return out
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		CertDir:               t.TempDir(),
		CallTimeout:           time.Second,
		PingInterval:          5 * time.Second,
		ConnectAttempts:       3,
		ConnectBackoff:        time.Millisecond,
		SendKeyAttempts:       3,
		QuickReconnectTimeout: 200 * time.Millisecond,
		ReconnectSettle:       0,
		Workers:               2,
		LogLevel:              "info",
	}
}

type harness struct {
	m      *Manager
	dialer *fakeDialer
	clock  *fakeClock
	cfg    *config.Config
}

func newHarness(t *testing.T, next func() *fakeRemote) *harness {
	t.Helper()
	h := &harness{
		dialer: &fakeDialer{next: next},
		clock:  newFakeClock(),
		cfg:    testConfig(t),
	}
	m, err := New(Options{
		Config: h.cfg,
		Dialer: h.dialer.dial,
		Now:    h.clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.m = m
	return h
}

func (h *harness) connect(t *testing.T) *fakeRemote {
	t.Helper()
	out := h.m.Connect(context.Background(), "192.168.1.20", "ggtv")
	require.Equal(t, StatusConnected, out.Status, out.String())
	h.dialer.mu.Lock()
	defer h.dialer.mu.Unlock()
	return h.dialer.remotes[len(h.dialer.remotes)-1]
}
