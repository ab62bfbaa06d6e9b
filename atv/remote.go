// Package atv describes the Android TV remote library this module drives.
//
// The pairing handshake, certificate generation and wire protocol are owned
// by the library; ggtv-kit only sees the Remote interface below. Concrete
// implementations are provided by the host (see package bridge) or by tests.
package atv

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidAuth is returned when the device rejects the client
	// certificate, or the pairing code, and pairing must be redone.
	ErrInvalidAuth = errors.New("invalid auth")
	// ErrCannotConnect is returned when the transport could not be opened.
	ErrCannotConnect = errors.New("cannot connect")
	// ErrConnectionClosed is returned when the device closed the link.
	ErrConnectionClosed = errors.New("connection closed")
)

// Retryable reports whether err is a transport failure worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrCannotConnect) || errors.Is(err, ErrConnectionClosed)
}

// DeviceInfo is the identity the device reports after connecting.
type DeviceInfo struct {
	Manufacturer    string
	Model           string
	SoftwareVersion string
	AppVersion      string
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s (sw %s, app %s)", d.Manufacturer, d.Model, d.SoftwareVersion, d.AppVersion)
}

// VolumeInfo is the last volume state pushed by the device.
type VolumeInfo struct {
	Level int
	Max   int
	Muted bool
}

func (v VolumeInfo) String() string {
	return fmt.Sprintf("%d/%d muted=%t", v.Level, v.Max, v.Muted)
}

// Remote is one client connection to one television.
//
// Context-taking methods block until the operation completes or ctx is done.
// Command methods queue a message on the established link and return
// immediately.
type Remote interface {
	// GenerateCertIfMissing creates the client certificate and key files if
	// they do not exist yet. It reports true when new material was written,
	// which means the device has never seen this client and must be paired.
	GenerateCertIfMissing(ctx context.Context) (bool, error)
	// NameAndMAC queries the device name and MAC address.
	NameAndMAC(ctx context.Context) (name, mac string, err error)
	// StartPairing asks the device to display a pairing code.
	StartPairing(ctx context.Context) error
	// FinishPairing submits the code shown on the device.
	FinishPairing(ctx context.Context, code string) error
	// Connect opens the remote-control link.
	Connect(ctx context.Context) error
	// KeepReconnecting enables the library's background keep-alive, which
	// restores the transport link whenever it drops.
	KeepReconnecting()
	// Disconnect closes the link and stops keep-alive.
	Disconnect() error

	SendKeyCommand(command string) error
	SendText(text string) error
	SendLaunchAppCommand(link string) error

	// DeviceInfo returns nil until the device has reported its identity.
	DeviceInfo() *DeviceInfo
	IsOn() bool
	CurrentApp() string
	// VolumeInfo returns nil until the device has reported its volume.
	VolumeInfo() *VolumeInfo
}

// Dialer constructs a Remote for host using the given certificate files. It
// does not open the connection.
type Dialer func(clientName, certFile, keyFile, host string) (Remote, error)
