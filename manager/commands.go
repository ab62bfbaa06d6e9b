package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/TienBeta/ggtv-kit/atv"
	"github.com/TienBeta/ggtv-kit/executor"
	"github.com/TienBeta/ggtv-kit/log"
	"github.com/TienBeta/ggtv-kit/retry"
)

// ShouldReconnect reports whether the link has been idle for at least
// PingInterval. It is false until the first successful command.
func (m *Manager) ShouldReconnect() bool {
	last := m.lastActivity.Load()
	if last.IsZero() {
		return false
	}
	idle := m.now().Sub(last)
	log.Debugf("should reconnect: idle %s, ping interval %s", units.HumanDuration(idle), m.cfg.PingInterval)
	return idle >= m.cfg.PingInterval
}

// SendKey sends an Android key code such as atv.KeyHome. Codes missing from
// atv.KeyMapping are sent with their KEYCODE_ prefix removed.
func (m *Manager) SendKey(ctx context.Context, code string) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	_, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.sendKey(ctx, code)
	})
	m.metrics.Commands.WithLabelValues("key", resultLabel(err)).Inc()
	if err != nil {
		log.Errorf("send key %s: %v", code, err)
		if errors.Is(err, ErrSendFailed) || errors.Is(err, ErrReconnectFailed) {
			m.setState(StateConnectError, err)
		}
	}
	return err
}

func (m *Manager) sendKey(ctx context.Context, code string) error {
	if m.ShouldReconnect() {
		rctx, cancel := context.WithTimeout(ctx, m.cfg.QuickReconnectTimeout)
		err := m.reconnect(rctx)
		cancel()
		if err != nil {
			log.Errorf("reconnection failed, cannot send command")
			return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
		}
	}

	command := atv.Command(code)
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	logger := log.L().With(zap.String("key", code), zap.String("command", command))
	err := m.sendKeyPolicy.Do(ctx, func(ctx context.Context, attempt int) error {
		err := m.withSendLock(ctx, func(r atv.Remote) error {
			return r.SendKeyCommand(command)
		})
		if err == nil {
			logger.Info("key sent")
			m.touch()
			return nil
		}
		if errors.Is(err, ErrNotConnected) {
			return retry.Stop(err)
		}
		logger.Error("send key error", zap.Int("attempt", attempt), zap.Error(err))
		if m.sendKeyPolicy.Last(attempt) {
			return err
		}

		if rerr := m.quickResend(ctx, command); rerr != nil {
			logger.Error("quick reconnect failed", zap.Error(rerr))
			return rerr
		}
		logger.Info("key sent after reconnect")
		m.touch()
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotConnected), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrSendFailed, m.sendKeyPolicy.MaxAttempts, err)
	}
}

// quickResend reconnects the current remote and sends command once more.
func (m *Manager) quickResend(ctx context.Context, command string) error {
	log.Infof("attempting quick reconnect")
	rctx, cancel := context.WithTimeout(ctx, m.cfg.QuickReconnectTimeout)
	defer cancel()
	if err := m.reconnect(rctx); err != nil {
		return err
	}
	if err := sleep(ctx, m.cfg.ReconnectSettle); err != nil {
		return err
	}
	return m.withSendLock(ctx, func(r atv.Remote) error {
		return r.SendKeyCommand(command)
	})
}

// SendAppLink asks the TV to open a deep link (https://www.youtube.com,
// youtube://) or an application package.
func (m *Manager) SendAppLink(ctx context.Context, link string) error {
	err := m.command(ctx, "app_link", func(r atv.Remote) error {
		return r.SendLaunchAppCommand(link)
	})
	if err != nil {
		log.Errorf("send app link error: %v", err)
		return fmt.Errorf("send app link: %w", err)
	}
	log.Infof("app link sent: %s", link)
	return nil
}

// SendText types text into the focused input field on the TV.
func (m *Manager) SendText(ctx context.Context, text string) error {
	err := m.command(ctx, "text", func(r atv.Remote) error {
		return r.SendText(text)
	})
	if err != nil {
		log.Errorf("send text error: %v", err)
		return fmt.Errorf("send text: %w", err)
	}
	log.Infof("text sent: %s", text)
	return nil
}

// OpenApp launches one of atv.CommonApps by nickname. Unknown names are
// logged and ignored.
func (m *Manager) OpenApp(ctx context.Context, name string) error {
	target, ok := atv.ResolveApp(name)
	if !ok {
		log.Warnf("app link not found: %s", name)
		return nil
	}
	return m.SendAppLink(ctx, target)
}

// command sends one message without retries and records activity.
func (m *Manager) command(ctx context.Context, kind string, send func(r atv.Remote) error) error {
	if !m.Connected() {
		return ErrNotConnected
	}
	_, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		if err := m.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, m.withSendLock(ctx, send)
	})
	m.metrics.Commands.WithLabelValues(kind, resultLabel(err)).Inc()
	if err == nil {
		m.touch()
	}
	return err
}

// Snapshot is a best-effort view of the device.
type Snapshot struct {
	Device     *atv.DeviceInfo
	IsOn       bool
	CurrentApp string
	Volume     *atv.VolumeInfo
}

// DeviceInfo returns the device state reported so far. ok is false when not
// connected or when the library did not answer within CallTimeout.
func (m *Manager) DeviceInfo(ctx context.Context) (snap Snapshot, ok bool) {
	if !m.Connected() {
		return Snapshot{}, false
	}
	snap, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (Snapshot, error) {
		r, _ := m.current()
		if r == nil {
			return Snapshot{}, ErrNotConnected
		}
		return Snapshot{
			Device:     r.DeviceInfo(),
			IsOn:       r.IsOn(),
			CurrentApp: r.CurrentApp(),
			Volume:     r.VolumeInfo(),
		}, nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotConnected) {
			log.Warnf("device info: %v", err)
		}
		return Snapshot{}, false
	}
	return snap, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
