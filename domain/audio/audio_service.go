package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/rover/pkg/config"
	customlog "github.com/open-teleop/rover/pkg/log"
)

var (
	// ErrUnavailable means the sound module is absent or failed to start
	ErrUnavailable = errors.New("audio unavailable")
	// ErrUnknownRole means no track is mapped to the requested role
	ErrUnknownRole = errors.New("unknown audio role")
)

// Track roles
const (
	RoleHorn  = "horn"
	RoleSiren = "siren"
	RoleNext  = "next"
)

// Player is the sound module
type Player interface {
	Play(track int) error
	Stop() error
	SetVolume(v int) error
}

type equalizer interface {
	SetEqualizer(eq int) error
}

// AudioService plays feedback sounds. It is independent of the drive.
type AudioService struct {
	player Player
	cfg    config.AudioConfig
	logger customlog.Logger

	mu          sync.Mutex
	ready       bool
	currentSong int
}

// NewAudioService creates a new audio service instance. A nil player yields a
// service that reports ErrUnavailable for every request.
func NewAudioService(player Player, cfg config.AudioConfig, logger customlog.Logger) *AudioService {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &AudioService{
		player: player,
		cfg:    cfg,
		logger: logger.WithField("component", "audio"),
	}
}

// Begin configures volume and equalizer and marks the service ready
func (s *AudioService) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return ErrUnavailable
	}
	if err := s.player.SetVolume(s.cfg.Volume); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if eq, ok := s.player.(equalizer); ok {
		if err := eq.SetEqualizer(0); err != nil {
			s.logger.Warnf("Failed to set equalizer: %v", err)
		}
	}
	s.ready = true
	s.logger.Infof("Audio ready (volume %d)", s.cfg.Volume)
	return nil
}

// Ready reports whether Begin succeeded
func (s *AudioService) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// PlayTrackByRole plays the track mapped to role and returns its number.
// "next" walks the song range and wraps back to the first song.
func (s *AudioService) PlayTrackByRole(role string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return 0, ErrUnavailable
	}

	var track int
	switch role {
	case RoleHorn:
		track = s.cfg.HornTrack
	case RoleSiren:
		track = s.cfg.SirenTrack
	case RoleNext:
		track = s.nextSong()
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	if err := s.player.Play(track); err != nil {
		return 0, fmt.Errorf("play track %d: %w", track, err)
	}
	s.logger.Debugf("Playing %s track %d", role, track)
	return track, nil
}

func (s *AudioService) nextSong() int {
	if s.currentSong < s.cfg.SongMin || s.currentSong >= s.cfg.SongMax {
		s.currentSong = s.cfg.SongMin
	} else {
		s.currentSong++
	}
	return s.currentSong
}

// Stop stops playback
func (s *AudioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrUnavailable
	}
	return s.player.Stop()
}

// PlayHandler serves POST /api/audio/:role
func (s *AudioService) PlayHandler(c *fiber.Ctx) error {
	role := c.Params("role")
	track, err := s.PlayTrackByRole(role)
	if err != nil {
		return audioError(err)
	}
	return c.JSON(fiber.Map{"status": "ok", "role": role, "track": track})
}

// StopHandler serves POST /api/audio/stop
func (s *AudioService) StopHandler(c *fiber.Ctx) error {
	if err := s.Stop(); err != nil {
		return audioError(err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func audioError(err error) error {
	switch {
	case errors.Is(err, ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrUnknownRole):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
