//  Remote.go
//  ggtv-kit Bridge
//
//  Adapts a host-implemented HostRemote to atv.Remote, translating error
//  markers into the atv sentinels and context deadlines into timeouts.

package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TienBeta/ggtv-kit/atv"
)

type hostRemote struct {
	host HostRemote
}

var _ atv.Remote = (*hostRemote)(nil)

func newHostRemote(host HostRemote) *hostRemote {
	return &hostRemote{host: host}
}

func (r *hostRemote) GenerateCertIfMissing(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	generated, err := r.host.GenerateCertIfMissing()
	return generated, classify(err)
}

func (r *hostRemote) NameAndMAC(ctx context.Context) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	name, err := r.host.Name()
	if err != nil {
		return "", "", classify(err)
	}
	mac, err := r.host.MAC()
	if err != nil {
		return "", "", classify(err)
	}
	return name, mac, nil
}

func (r *hostRemote) StartPairing(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(r.host.StartPairing())
}

func (r *hostRemote) FinishPairing(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(r.host.FinishPairing(code))
}

func (r *hostRemote) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(r.host.Connect(contextDeadlineMillis(ctx)))
}

func (r *hostRemote) KeepReconnecting() {
	r.host.KeepReconnecting()
}

func (r *hostRemote) Disconnect() error {
	return classify(r.host.Disconnect())
}

func (r *hostRemote) SendKeyCommand(command string) error {
	return classify(r.host.SendKeyCommand(command))
}

func (r *hostRemote) SendText(text string) error {
	return classify(r.host.SendText(text))
}

func (r *hostRemote) SendLaunchAppCommand(link string) error {
	return classify(r.host.SendLaunchAppCommand(link))
}

func (r *hostRemote) DeviceInfo() *atv.DeviceInfo {
	id := r.host.DeviceInfo()
	if id == nil {
		return nil
	}
	return &atv.DeviceInfo{
		Manufacturer:    id.Manufacturer,
		Model:           id.Model,
		SoftwareVersion: id.SoftwareVersion,
		AppVersion:      id.AppVersion,
	}
}

func (r *hostRemote) IsOn() bool {
	return r.host.IsOn()
}

func (r *hostRemote) CurrentApp() string {
	return r.host.CurrentApp()
}

func (r *hostRemote) VolumeInfo() *atv.VolumeInfo {
	v := r.host.VolumeInfo()
	if v == nil {
		return nil
	}
	return &atv.VolumeInfo{Level: v.Level, Max: v.Max, Muted: v.Muted}
}

// classify maps host error markers to the atv sentinels, keeping the host
// message in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, MarkerInvalidAuth):
		return fmt.Errorf("%w: %w", atv.ErrInvalidAuth, err)
	case strings.Contains(msg, MarkerCannotConnect):
		return fmt.Errorf("%w: %w", atv.ErrCannotConnect, err)
	case strings.Contains(msg, MarkerConnectionClosed):
		return fmt.Errorf("%w: %w", atv.ErrConnectionClosed, err)
	}
	return err
}

func contextDeadlineMillis(ctx context.Context) int64 {
	if deadline, ok := ctx.Deadline(); ok {
		// 0 means unbounded to the host, so an expiring deadline rounds up.
		millis := time.Until(deadline).Milliseconds()
		if millis < 1 {
			return 1
		}
		return millis
	}
	return 0
}
