//  Config.go
//  ggtv-kit Bridge
//
//  Defines the configuration and interface surface exposed to the gomobile
//  bindings so the host app can plug its Android TV remote library into the
//  Go connection manager.

package bridge

import (
	"fmt"
	"time"

	"github.com/TienBeta/ggtv-kit/config"
)

// Markers a HostRemote puts in its error messages so that authentication and
// transport failures can be told apart on the Go side.
const (
	MarkerInvalidAuth      = "INVALID_AUTH"
	MarkerCannotConnect    = "CANNOT_CONNECT"
	MarkerConnectionClosed = "CONNECTION_CLOSED"
)

// Config captures the runtime options surfaced to the host layer. Zero values
// keep the settings read from ConfigPath, or from the GGTV_* environment when
// no path is given.
type Config struct {
	// ConfigPath optionally names a YAML settings file.
	ConfigPath string
	// CertDir overrides the directory holding cert.pem and key.pem.
	CertDir string

	CallTimeoutMillis  int64
	PingIntervalMillis int64
	// Workers is the number of background jobs that may run at once.
	Workers int
	// MemoryLimit caps the Go heap, for example "24MiB".
	MemoryLimit string
}

func (c *Config) settings() (*config.Config, error) {
	var s *config.Config
	if c.ConfigPath != "" {
		loaded, err := config.LoadFile(c.ConfigPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	} else {
		s = config.LoadOrDefault()
	}

	if c.CertDir != "" {
		s.CertDir = c.CertDir
	}
	if c.CallTimeoutMillis > 0 {
		s.CallTimeout = time.Duration(c.CallTimeoutMillis) * time.Millisecond
	}
	if c.PingIntervalMillis > 0 {
		s.PingInterval = time.Duration(c.PingIntervalMillis) * time.Millisecond
	}
	if c.Workers > 0 {
		s.Workers = c.Workers
	}
	if c.MemoryLimit != "" {
		s.MemoryLimit = c.MemoryLimit
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// RemoteFactory is implemented by the host to create remotes backed by its
// Android TV remote library.
type RemoteFactory interface {
	// NewRemote builds a client for host that authenticates with the given
	// certificate files. It must not connect yet.
	NewRemote(clientName, certFile, keyFile, host string) (HostRemote, error)
}

// HostRemote wraps one library client owned by the host. Blocking methods may
// take as long as they need; the engine bounds them with its own timeouts.
// Errors should carry one of the Marker constants when they apply.
type HostRemote interface {
	// GenerateCertIfMissing reports true when new certificate files were
	// written.
	GenerateCertIfMissing() (bool, error)
	Name() (string, error)
	MAC() (string, error)
	StartPairing() error
	FinishPairing(code string) error
	// Connect opens the link. timeoutMillis is the time left before the
	// engine gives up, or 0 when unbounded.
	Connect(timeoutMillis int64) error
	KeepReconnecting()
	Disconnect() error

	SendKeyCommand(command string) error
	SendText(text string) error
	SendLaunchAppCommand(link string) error

	// DeviceInfo may return nil until the device reported its identity.
	DeviceInfo() *DeviceIdentity
	IsOn() bool
	CurrentApp() string
	// VolumeInfo may return nil until the device reported its volume.
	VolumeInfo() *Volume
}

// DeviceIdentity is the identity reported by the device.
type DeviceIdentity struct {
	Manufacturer    string
	Model           string
	SoftwareVersion string
	AppVersion      string
}

// Volume is the volume state reported by the device.
type Volume struct {
	Level int
	Max   int
	Muted bool
}
