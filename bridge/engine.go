//  Engine.go
//  ggtv-kit Bridge
//
//  Exposes the connection manager to the host app as plain synchronous calls.
//  Each call drives one manager operation to completion and converts the
//  result into a bool or error the host can interpret.

package bridge

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"

	"github.com/docker/go-units"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/atomic"

	"github.com/TienBeta/ggtv-kit/atv"
	"github.com/TienBeta/ggtv-kit/executor"
	"github.com/TienBeta/ggtv-kit/log"
	"github.com/TienBeta/ggtv-kit/manager"
)

// Connect result statuses.
const (
	ConnectStatusConnected int32 = iota
	ConnectStatusPairingRequired
	ConnectStatusFailed
)

// Connection states reported to a StateObserver.
const (
	StateDisconnected    = int32(manager.StateDisconnected)
	StateConnecting      = int32(manager.StateConnecting)
	StateConnected       = int32(manager.StateConnected)
	StatePairingRequired = int32(manager.StatePairingRequired)
	StateConnectError    = int32(manager.StateConnectError)
)

// Pairing states reported to a StateObserver.
const (
	PairingNone    = int32(manager.PairingNone)
	PairingSuccess = int32(manager.PairingSuccess)
	PairingFailed  = int32(manager.PairingFailed)
)

// ConnectResult is the detailed outcome of Engine.Connect.
type ConnectResult struct {
	Status int32
	// Message describes a failure, empty otherwise.
	Message string
	// TimedOut is set when the attempt ran past the call timeout.
	TimedOut bool
}

// DeviceInfo is a snapshot of the connected device. Connected is false and
// every other field is empty when there is no connection.
type DeviceInfo struct {
	Connected       bool
	Description     string
	Manufacturer    string
	Model           string
	SoftwareVersion string
	AppVersion      string
	IsOn            bool
	CurrentApp      string
	// Volume is empty until the device reported it.
	Volume      string
	VolumeLevel int
	VolumeMax   int
	Muted       bool
}

// StateObserver is implemented by the host to follow state changes.
// Callbacks run on Go worker goroutines.
type StateObserver interface {
	OnConnectionStateChanged(state int32, message string)
	OnPairingStateChanged(state int32, message string)
}

// Engine is the host's entry point to one Android TV connection.
type Engine struct {
	manager  *manager.Manager
	registry *prometheus.Registry
	running  atomic.Bool
}

// NewEngine constructs a new bridge instance.
func NewEngine(cfg *Config, factory RemoteFactory) (*Engine, error) {
	if factory == nil {
		return nil, errors.New("remote factory is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	settings, err := cfg.settings()
	if err != nil {
		return nil, err
	}
	if limit, _ := settings.MemoryLimitBytes(); limit > 0 {
		debug.SetMemoryLimit(limit)
		log.Infof("go memory limit set to %s", units.BytesSize(float64(limit)))
	}

	registry := prometheus.NewRegistry()
	m, err := manager.New(manager.Options{
		Config:  settings,
		Dialer:  dialer(factory),
		Metrics: manager.NewMetrics(registry),
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		manager:  m,
		registry: registry,
	}
	e.running.Store(true)
	return e, nil
}

func dialer(factory RemoteFactory) atv.Dialer {
	return func(clientName, certFile, keyFile, host string) (atv.Remote, error) {
		remote, err := factory.NewRemote(clientName, certFile, keyFile, host)
		if err != nil {
			return nil, classify(err)
		}
		if remote == nil {
			return nil, errors.New("remote factory returned nil")
		}
		return newHostRemote(remote), nil
	}
}

// IsRunning reports whether Cleanup has not been called yet.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// ConnectToTV connects to host. It returns true once connected and false on
// failure. When the device must be paired first it returns an error whose
// message contains PAIRING_REQUIRED; the pairing code is then on screen.
func (e *Engine) ConnectToTV(host, appName string) (bool, error) {
	out := e.manager.Connect(context.Background(), host, appName)
	switch out.Status {
	case manager.StatusConnected:
		return true, nil
	case manager.StatusPairingRequired:
		return false, manager.ErrPairingRequired
	default:
		log.Errorf("connect to tv failed: %v", out.Reason)
		return false, nil
	}
}

// Connect is ConnectToTV with the full outcome.
func (e *Engine) Connect(host, appName string) *ConnectResult {
	out := e.manager.Connect(context.Background(), host, appName)
	switch out.Status {
	case manager.StatusConnected:
		return &ConnectResult{Status: ConnectStatusConnected}
	case manager.StatusPairingRequired:
		return &ConnectResult{Status: ConnectStatusPairingRequired}
	default:
		return &ConnectResult{
			Status:   ConnectStatusFailed,
			Message:  errMessage(out.Err()),
			TimedOut: errors.Is(out.Reason, executor.ErrTimeout),
		}
	}
}

// FinishPairing submits the code shown on the TV.
func (e *Engine) FinishPairing(code string) bool {
	return e.manager.FinishPairing(context.Background(), code) == nil
}

// RetryConnection connects the current remote again, typically right after
// FinishPairing succeeded.
func (e *Engine) RetryConnection() bool {
	if err := e.manager.Reconnect(context.Background()); err != nil {
		log.Errorf("retry connection: %v", err)
		return false
	}
	return true
}

// DisconnectFromTV closes the connection, if any.
func (e *Engine) DisconnectFromTV() {
	e.manager.Disconnect()
}

// SendKey sends an Android key code such as KEYCODE_HOME. It fails when not
// connected or when the key could not be delivered after reconnecting.
func (e *Engine) SendKey(code string) (bool, error) {
	if err := e.manager.SendKey(context.Background(), code); err != nil {
		return false, err
	}
	return true, nil
}

// SendAppLink opens a deep link or application package on the TV.
func (e *Engine) SendAppLink(url string) error {
	return e.manager.SendAppLink(context.Background(), url)
}

// SendText types text into the focused field on the TV.
func (e *Engine) SendText(text string) error {
	return e.manager.SendText(context.Background(), text)
}

// OpenApp launches a well-known app by name, for example "youtube". Unknown
// names are ignored.
func (e *Engine) OpenApp(name string) error {
	return e.manager.OpenApp(context.Background(), name)
}

// GetDeviceInfo returns what the device has reported so far.
func (e *Engine) GetDeviceInfo() *DeviceInfo {
	snap, ok := e.manager.DeviceInfo(context.Background())
	if !ok {
		return &DeviceInfo{}
	}
	info := &DeviceInfo{
		Connected:  true,
		IsOn:       snap.IsOn,
		CurrentApp: snap.CurrentApp,
	}
	if d := snap.Device; d != nil {
		info.Description = d.String()
		info.Manufacturer = d.Manufacturer
		info.Model = d.Model
		info.SoftwareVersion = d.SoftwareVersion
		info.AppVersion = d.AppVersion
	}
	if v := snap.Volume; v != nil {
		info.Volume = v.String()
		info.VolumeLevel = v.Level
		info.VolumeMax = v.Max
		info.Muted = v.Muted
	}
	return info
}

// ShouldReconnect reports whether the next key press will reconnect first.
func (e *Engine) ShouldReconnect() bool {
	return e.manager.ShouldReconnect()
}

// ConnectionState returns one of the State constants.
func (e *Engine) ConnectionState() int32 {
	return int32(e.manager.State())
}

// PairingState returns one of the Pairing constants.
func (e *Engine) PairingState() int32 {
	return int32(e.manager.PairingState())
}

// SetStateObserver installs observer. Nil removes the current one.
func (e *Engine) SetStateObserver(observer StateObserver) {
	if observer == nil {
		e.manager.SetListener(nil)
		return
	}
	e.manager.SetListener(observerListener{observer: observer})
}

// Metrics returns the engine counters in the Prometheus text format.
func (e *Engine) Metrics() string {
	families, err := e.registry.Gather()
	if err != nil {
		log.Warnf("gather metrics: %v", err)
		return ""
	}
	var b strings.Builder
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			log.Warnf("encode metrics: %v", err)
			return ""
		}
	}
	return b.String()
}

// Cleanup disconnects and stops background work. The engine cannot connect
// again afterwards.
func (e *Engine) Cleanup() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	e.manager.Close()
	_ = log.Sync()
}

type observerListener struct {
	observer StateObserver
}

func (l observerListener) ConnectionStateChanged(state manager.ConnectionState, err error) {
	l.observer.OnConnectionStateChanged(int32(state), errMessage(err))
}

func (l observerListener) PairingStateChanged(state manager.PairingState, err error) {
	l.observer.OnPairingStateChanged(int32(state), errMessage(err))
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
