package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TienBeta/ggtv-kit/atv"
	"github.com/TienBeta/ggtv-kit/executor"
	"github.com/TienBeta/ggtv-kit/log"
	"github.com/TienBeta/ggtv-kit/retry"
)

// Connect creates a remote for host and connects it. A device that has
// never seen this client, or that rejects its certificate, is asked to show
// a pairing code and the outcome is StatusPairingRequired; FinishPairing and
// Reconnect complete the flow. Any previous connection is closed first.
func (m *Manager) Connect(ctx context.Context, host, appName string) Outcome {
	m.setState(StateConnecting, nil)

	out, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (Outcome, error) {
		return m.connect(ctx, host, appName), nil
	})
	if err != nil {
		log.Errorf("connect to %s: %v", host, err)
		out = failedOutcome(err)
	}

	m.metrics.Connects.WithLabelValues(out.Status.String()).Inc()
	switch out.Status {
	case StatusConnected:
		m.setState(StateConnected, nil)
	case StatusPairingRequired:
		m.setState(StatePairingRequired, ErrPairingRequired)
	default:
		m.setState(StateConnectError, out.Err())
	}
	return out
}

func (m *Manager) connect(ctx context.Context, host, appName string) Outcome {
	certFile, keyFile, err := m.cfg.CertPaths()
	if err != nil {
		log.Errorf("cert files failed: %v", err)
		return failedOutcome(err)
	}

	remote, err := m.dial(appName, certFile, keyFile, host)
	if err != nil {
		log.Errorf("create remote for %s: %v", host, err)
		return failedOutcome(fmt.Errorf("create remote: %w", err))
	}

	session := uuid.NewString()
	logger := log.L().With(zap.String("session", session), zap.String("host", host))
	if prev := m.replaceRemote(remote, session); prev != nil {
		if err := prev.Disconnect(); err != nil {
			logger.Warn("disconnect previous remote", zap.Error(err))
		}
	}
	logger.Info("connecting")

	out := m.establish(ctx, remote, logger)
	switch out.Status {
	case StatusFailed:
		logger.Error("connect error", zap.Error(out.Reason))
		if r := m.dropSession(session); r != nil {
			disconnect(r, logger)
		}
	case StatusConnected:
		if err := ctx.Err(); err != nil {
			// The caller stopped waiting; do not leave a remote it never saw.
			if r := m.dropSession(session); r != nil {
				disconnect(r, logger)
			}
			return failedOutcome(fmt.Errorf("%w: %w", ErrConnectAborted, err))
		}
		if err := m.keepAlive(remote, session, logger); err != nil {
			return failedOutcome(err)
		}
		logger.Info("connect successful",
			zap.Stringer("device_info", deviceInfo(remote)),
			zap.Bool("is_on", remote.IsOn()),
			zap.String("current_app", remote.CurrentApp()),
		)
	}
	return out
}

// keepAlive enables background reconnection on remote unless its session was
// released meanwhile, in which case remote is shut down again.
func (m *Manager) keepAlive(remote atv.Remote, session string, logger *zap.Logger) error {
	remote.KeepReconnecting()
	if m.holds(session) {
		return nil
	}
	logger.Warn("remote released while connecting")
	disconnect(remote, logger)
	return ErrConnectAborted
}

func disconnect(r atv.Remote, logger *zap.Logger) {
	if err := r.Disconnect(); err != nil {
		logger.Warn("disconnect error", zap.Error(err))
	}
}

func (m *Manager) establish(ctx context.Context, remote atv.Remote, logger *zap.Logger) Outcome {
	generated, err := remote.GenerateCertIfMissing(ctx)
	if err != nil {
		return failedOutcome(fmt.Errorf("generate certificate: %w", err))
	}
	if generated {
		logger.Info("created new certificate, pairing required")
		if err := m.startPairing(ctx, remote, logger); err != nil {
			return failedOutcome(fmt.Errorf("%w: %w", ErrPairingFailed, err))
		}
		return pairingOutcome()
	}

	err = m.connectPolicy.Do(ctx, func(ctx context.Context, attempt int) error {
		err := remote.Connect(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, atv.ErrInvalidAuth):
			logger.Warn("need to pair again", zap.Int("attempt", attempt))
			if perr := m.startPairing(ctx, remote, logger); perr == nil {
				return retry.Stop(ErrPairingRequired)
			}
			return retry.Immediate(err)
		case atv.Retryable(err):
			logger.Error("cannot connect", zap.Int("attempt", attempt), zap.Error(err))
			return err
		default:
			return retry.Stop(err)
		}
	})
	if errors.Is(err, ErrPairingRequired) {
		return pairingOutcome()
	}
	if err != nil {
		return failedOutcome(err)
	}
	return connectedOutcome()
}

func (m *Manager) startPairing(ctx context.Context, remote atv.Remote, logger *zap.Logger) error {
	name, mac, err := remote.NameAndMAC(ctx)
	if err != nil {
		logger.Error("pairing failed", zap.Error(err))
		return err
	}
	logger.Info("pairing", zap.String("name", name), zap.String("mac", mac))

	if err := remote.StartPairing(ctx); err != nil {
		logger.Error("pairing failed", zap.Error(err))
		return err
	}
	logger.Info("pairing started, check the TV for the pairing code")
	m.setPairing(PairingNone, nil)
	return nil
}

// FinishPairing submits the code displayed on the TV. Call Reconnect
// afterwards to open the link.
func (m *Manager) FinishPairing(ctx context.Context, code string) error {
	remote, _ := m.current()
	if remote == nil {
		log.Errorf("no remote instance for pairing")
		return ErrNotConnected
	}

	log.Infof("finish pairing with code: %s", code)
	_, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, remote.FinishPairing(ctx, code)
	})
	switch {
	case err == nil:
		log.Infof("pairing successful")
		m.setPairing(PairingSuccess, nil)
		return nil
	case errors.Is(err, atv.ErrInvalidAuth):
		log.Warnf("pairing code invalid")
	case errors.Is(err, atv.ErrConnectionClosed):
		log.Warnf("connection closed during pairing, please try again")
	default:
		log.Errorf("finish pairing failed: %v", err)
	}
	m.setPairing(PairingFailed, err)
	return fmt.Errorf("finish pairing: %w", err)
}

// Reconnect connects the current remote again and re-enables keep-alive.
// It is used after pairing completes.
func (m *Manager) Reconnect(ctx context.Context) error {
	if !m.Connected() {
		log.Errorf("no remote instance to connect")
		return ErrNotConnected
	}
	_, err := executor.Run(ctx, m.exec, m.cfg.CallTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.reconnect(ctx)
	})
	if err != nil {
		m.setState(StateConnectError, err)
		return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
	}
	return nil
}

// reconnect runs inline on the caller's job.
func (m *Manager) reconnect(ctx context.Context) error {
	remote, session := m.current()
	if remote == nil {
		return ErrNotConnected
	}
	log.Infof("attempting reconnection")
	err := remote.Connect(ctx)
	m.metrics.Reconnects.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		log.Warnf("reconnection failed: %v", err)
		return err
	}
	logger := log.L().With(zap.String("session", session))
	if err := m.keepAlive(remote, session, logger); err != nil {
		return err
	}
	logger.Info("connect successful",
		zap.Stringer("device_info", deviceInfo(remote)),
		zap.Bool("is_on", remote.IsOn()),
	)
	m.setState(StateConnected, nil)
	return nil
}

// Disconnect closes and forgets the current remote.
func (m *Manager) Disconnect() {
	remote, session := m.takeRemote()
	if remote == nil {
		return
	}
	if err := remote.Disconnect(); err != nil {
		log.Errorf("disconnect error: %v", err)
	} else {
		log.L().Info("disconnected", zap.String("session", session))
	}
	m.setState(StateDisconnected, nil)
	m.setPairing(PairingNone, nil)
}

func deviceInfo(r atv.Remote) fmt.Stringer {
	if info := r.DeviceInfo(); info != nil {
		return info
	}
	return atv.DeviceInfo{}
}
