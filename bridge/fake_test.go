package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	mu sync.Mutex

	generated   bool
	connectErrs []error
	finishErr   error
	sendErr     error
	// release, when set, blocks Connect until closed.
	release chan struct{}
	// textRelease, when set, blocks SendText until closed.
	textRelease chan struct{}

	connects     int
	timeouts     []int64
	keepAlive    int
	disconnects  int
	pairingCodes []string
	sent         []string
	texts        []string
	links        []string
}

func (h *fakeHost) GenerateCertIfMissing() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.generated, nil
}

func (h *fakeHost) Name() (string, error) { return "Living Room TV", nil }
func (h *fakeHost) MAC() (string, error)  { return "AA:BB:CC:DD:EE:FF", nil }
func (h *fakeHost) StartPairing() error   { return nil }

func (h *fakeHost) FinishPairing(code string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pairingCodes = append(h.pairingCodes, code)
	return h.finishErr
}

func (h *fakeHost) Connect(timeoutMillis int64) error {
	h.mu.Lock()
	h.connects++
	h.timeouts = append(h.timeouts, timeoutMillis)
	release := h.release
	var err error
	if len(h.connectErrs) > 0 {
		err = h.connectErrs[0]
		h.connectErrs = h.connectErrs[1:]
	}
	h.mu.Unlock()

	if release != nil {
		<-release
	}
	return err
}

func (h *fakeHost) KeepReconnecting() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keepAlive++
}

func (h *fakeHost) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
	return nil
}

func (h *fakeHost) SendKeyCommand(command string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sendErr != nil {
		return h.sendErr
	}
	h.sent = append(h.sent, command)
	return nil
}

func (h *fakeHost) SendText(text string) error {
	h.mu.Lock()
	release := h.textRelease
	h.mu.Unlock()
	if release != nil {
		<-release
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.texts = append(h.texts, text)
	return nil
}

func (h *fakeHost) SendLaunchAppCommand(link string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.links = append(h.links, link)
	return nil
}

func (h *fakeHost) DeviceInfo() *DeviceIdentity {
	return &DeviceIdentity{Manufacturer: "Google", Model: "Chromecast", SoftwareVersion: "14", AppVersion: "6.0"}
}

func (h *fakeHost) IsOn() bool         { return true }
func (h *fakeHost) CurrentApp() string { return "com.google.android.youtube.tv" }
func (h *fakeHost) VolumeInfo() *Volume {
	return &Volume{Level: 7, Max: 100}
}

func (h *fakeHost) counts() (connects, keepAlive, disconnects int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects, h.keepAlive, h.disconnects
}

type factoryCall struct {
	clientName, certFile, keyFile, host string
}

type fakeFactory struct {
	mu    sync.Mutex
	host  *fakeHost
	err   error
	calls []factoryCall
}

func (f *fakeFactory) NewRemote(clientName, certFile, keyFile, host string) (HostRemote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, factoryCall{clientName, certFile, keyFile, host})
	if f.err != nil {
		return nil, f.err
	}
	return f.host, nil
}

type stateRecorder struct {
	mu         sync.Mutex
	connection []int32
	pairing    []int32
	messages   []string
}

func (r *stateRecorder) OnConnectionStateChanged(state int32, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connection = append(r.connection, state)
	r.messages = append(r.messages, message)
}

func (r *stateRecorder) OnPairingStateChanged(state int32, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairing = append(r.pairing, state)
}

var errHostUnreachable = errors.New("CANNOT_CONNECT: host unreachable")

// newTestEngine builds an engine from a settings file with short backoffs.
func newTestEngine(t *testing.T, factory *fakeFactory) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ggtv.yaml")
	settings := "connect_backoff: 1ms\nreconnect_settle: 0s\nquick_reconnect_timeout: 200ms\ncommand_rate: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))

	e, err := NewEngine(&Config{ConfigPath: path, CertDir: dir, CallTimeoutMillis: 1000, Workers: 2}, factory)
	require.NoError(t, err)
	t.Cleanup(e.Cleanup)
	return e, dir
}
