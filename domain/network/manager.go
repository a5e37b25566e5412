package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/open-teleop/rover/pkg/config"
	customlog "github.com/open-teleop/rover/pkg/log"
)

// ErrNoLink is returned when neither the station join nor the access point
// fallback produced a usable link.
var ErrNoLink = errors.New("no network link")

const defaultCheckInterval = 30 * time.Second

// Radio is the wireless interface the manager drives
type Radio interface {
	StartAccessPoint(ssid, password string) error
	Join(ssid, password string) error
	Associated() bool
	Address() (string, error)
}

// Manager brings the wireless link up and keeps it up. It never touches the
// drive; losing the link is handled by the transport's disconnect events.
type Manager struct {
	radio  Radio
	cfg    config.NetworkConfig
	logger customlog.Logger

	mu   sync.RWMutex
	mode string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewManager creates a network manager for cfg
func NewManager(radio Radio, cfg config.NetworkConfig, logger customlog.Logger) *Manager {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &Manager{
		radio:  radio,
		cfg:    cfg,
		logger: logger.WithField("component", "network"),
		sleep:  sleepContext,
	}
}

// Begin starts the configured mode. In station mode the join is polled up to
// JoinAttempts times; if it never associates the manager falls back to its
// own access point.
func (m *Manager) Begin(ctx context.Context) error {
	if m.cfg.Mode == config.NetworkModeStation {
		err := m.join(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warnf("Could not join %q (%v), falling back to access point %q", m.cfg.SSID, err, m.cfg.APSSID)
	}
	return m.startAccessPoint()
}

func (m *Manager) join(ctx context.Context) error {
	m.logger.Infof("Joining network %q", m.cfg.SSID)
	if err := m.radio.Join(m.cfg.SSID, m.cfg.Password); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	for attempt := 1; attempt <= m.cfg.JoinAttempts; attempt++ {
		if m.radio.Associated() {
			m.setMode(config.NetworkModeStation)
			addr, _ := m.radio.Address()
			m.logger.Infof("Joined %q after %d attempt(s), address %s", m.cfg.SSID, attempt, addr)
			return nil
		}
		if err := m.sleep(ctx, m.cfg.JoinInterval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: not associated after %d attempts", ErrNoLink, m.cfg.JoinAttempts)
}

func (m *Manager) startAccessPoint() error {
	if err := m.radio.StartAccessPoint(m.cfg.APSSID, m.cfg.APPassword); err != nil {
		m.setMode("")
		return fmt.Errorf("%w: access point %q: %v", ErrNoLink, m.cfg.APSSID, err)
	}
	m.setMode(config.NetworkModeAP)
	m.logger.Infof("Access point %q up, address %s", m.cfg.APSSID, m.cfg.AccessPointAddress)
	return nil
}

// IsConnected reports whether the link is usable. The access point counts as
// always connected.
func (m *Manager) IsConnected() bool {
	switch m.Mode() {
	case config.NetworkModeAP:
		return true
	case config.NetworkModeStation:
		return m.radio.Associated()
	default:
		return false
	}
}

// Address returns the address clients should use to reach the rover
func (m *Manager) Address() string {
	switch m.Mode() {
	case config.NetworkModeAP:
		return m.cfg.AccessPointAddress
	case config.NetworkModeStation:
		addr, err := m.radio.Address()
		if err != nil {
			m.logger.Debugf("No station address: %v", err)
			return ""
		}
		return addr
	default:
		return ""
	}
}

// Mode returns the active mode, "ap", "station" or "" before Begin succeeds
func (m *Manager) Mode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

func (m *Manager) setMode(mode string) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// Supervise checks the link every interval and re-runs Begin when it is lost.
// It returns when ctx is cancelled.
func (m *Manager) Supervise(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = m.cfg.CheckInterval
	}
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if m.IsConnected() {
				continue
			}
			m.logger.Warnf("Network link lost (mode=%s), reconnecting", m.Mode())
			if err := m.Begin(ctx); err != nil && ctx.Err() == nil {
				m.logger.Errorf("Reconnect failed: %v", err)
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
