package services

import (
	"errors"
	"fmt"
	"sync"

	"github.com/open-teleop/rover/pkg/config"
	customlog "github.com/open-teleop/rover/pkg/log"
)

// ErrInvalidConfig marks updates rejected for their content rather than for
// a failure to persist them
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigPublisher defines the interface for publishing configuration updates.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification(robotID, version string) error
}

// RoverConfigService manages the persisted rover configuration. Updates take
// effect on the next boot; the running services keep the config they started with.
type RoverConfigService interface {
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	SetPublisher(p ConfigPublisher)
}

type roverConfigService struct {
	path      string
	logger    customlog.Logger
	publisher ConfigPublisher
	current   *config.Config
	mu        sync.RWMutex
}

// NewRoverConfigService creates a service for the config file at path, seeded
// with the config the process booted with.
func NewRoverConfigService(path string, current *config.Config, logger customlog.Logger) (RoverConfigService, error) {
	if path == "" {
		return nil, fmt.Errorf("configuration path cannot be empty")
	}
	if current == nil {
		return nil, fmt.Errorf("current configuration cannot be nil")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &roverConfigService{
		path:    path,
		logger:  logger,
		current: current,
	}, nil
}

// GetCurrentConfig returns the saved configuration. Treat it as read-only.
func (s *roverConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GetCurrentConfigYAML returns the saved configuration with secrets masked
func (s *roverConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Redacted().ToYAML()
}

// UpdateConfig parses, validates and persists a new configuration. Masked
// secrets in the input keep their saved values.
func (s *roverConfigService) UpdateConfig(newConfigYAML []byte) error {
	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s.mu.Lock()
	newCfg.KeepSecrets(s.current)
	if err := newCfg.Validate(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := config.SaveConfig(s.path, newCfg); err != nil {
		s.mu.Unlock()
		s.logger.Errorf("Failed to persist configuration to %s: %v", s.path, err)
		return err
	}
	old := s.current
	s.current = newCfg
	publisher := s.publisher
	s.mu.Unlock()

	s.logger.Infof("Configuration saved to %s (version %s -> %s); applies on next boot", s.path, old.Version, newCfg.Version)

	if publisher != nil {
		if err := publisher.PublishConfigUpdatedNotification(newCfg.RobotID, newCfg.Version); err != nil {
			s.logger.Warnf("Failed to publish configuration update notification: %v", err)
		}
	}
	return nil
}

// SetPublisher sets the publisher notified after successful updates
func (s *roverConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}
