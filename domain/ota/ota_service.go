package ota

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/open-teleop/rover/pkg/config"
	customlog "github.com/open-teleop/rover/pkg/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrVersionRejected  = errors.New("firmware version rejected")
	ErrUpdateInProgress = errors.New("update already in progress")
	ErrImageTooLarge    = errors.New("firmware image too large")
)

// Update states
const (
	StateIdle      = "idle"
	StateReceiving = "receiving"
	StateDone      = "done"
	StateFailed    = "failed"
)

// Callbacks observe an update. OnStart runs before any byte is written; if it
// fails the update is aborted.
type Callbacks struct {
	OnStart    func(ctx context.Context, version string) error
	OnProgress func(written, total int64)
	OnError    func(err error)
	OnEnd      func(version string)
}

// Status is the last known update state
type Status struct {
	State     string    `json:"state"`
	Current   string    `json:"current_version"`
	Target    string    `json:"target_version,omitempty"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OTAService authenticates and stages firmware images
type OTAService struct {
	cfg       config.OTAConfig
	callbacks Callbacks
	logger    customlog.Logger

	passwordHash []byte
	secret       []byte
	maxBytes     int64

	mu      sync.Mutex
	busy    bool
	current *semver.Version
	status  Status

	now func() time.Time
}

// NewOTAService creates a new OTA service instance
func NewOTAService(cfg config.OTAConfig, callbacks Callbacks, logger customlog.Logger) (*OTAService, error) {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	current, err := semver.NewVersion(cfg.FirmwareVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid firmware version %q: %w", cfg.FirmwareVersion, err)
	}

	hash := []byte(cfg.PasswordHash)
	if len(hash) == 0 {
		if cfg.Password == "" {
			return nil, fmt.Errorf("ota requires password or password_hash")
		}
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash ota password: %w", err)
		}
	}

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}

	s := &OTAService{
		cfg:          cfg,
		callbacks:    callbacks,
		logger:       logger.WithField("component", "ota"),
		passwordHash: hash,
		secret:       secret,
		maxBytes:     int64(cfg.MaxImageMB) << 20,
		current:      current,
		now:          time.Now,
	}
	s.status = Status{State: StateIdle, Current: current.String(), UpdatedAt: s.now()}
	return s, nil
}

// IssueToken checks password and returns a signed bearer token
func (s *OTAService) IssueToken(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warnf("Rejected OTA login")
		return "", time.Time{}, ErrUnauthorized
	}

	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   s.cfg.Hostname,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// VerifyToken validates a bearer token issued by IssueToken
func (s *OTAService) VerifyToken(token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(s.cfg.Hostname),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

// CheckVersion accepts target only if it is newer than the running firmware,
// unless force is set.
func (s *OTAService) CheckVersion(target string, force bool) (*semver.Version, error) {
	v, err := semver.NewVersion(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a semantic version", ErrVersionRejected, target)
	}

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if !force && !v.GreaterThan(current) {
		return nil, fmt.Errorf("%w: %s is not newer than %s", ErrVersionRejected, v, current)
	}
	return v, nil
}

// Apply stages an image read from r. size is the expected length, or -1 when
// unknown. Only one update runs at a time.
func (s *OTAService) Apply(ctx context.Context, target string, force bool, r io.Reader, size int64) error {
	version, err := s.CheckVersion(target, force)
	if err != nil {
		return err
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, size, s.maxBytes)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrUpdateInProgress
	}
	s.busy = true
	s.setStatusLocked(StateReceiving, version.String(), 0, "")
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := s.stage(ctx, version, r, size); err != nil {
		s.fail(version, err)
		return err
	}

	s.mu.Lock()
	s.current = version
	s.setStatusLocked(StateDone, version.String(), 100, "")
	s.mu.Unlock()

	s.logger.Infof("Firmware %s staged", version)
	if s.callbacks.OnEnd != nil {
		s.callbacks.OnEnd(version.String())
	}
	return nil
}

func (s *OTAService) stage(ctx context.Context, version *semver.Version, r io.Reader, size int64) error {
	s.logger.Infof("OTA update to %s started", version)
	if s.callbacks.OnStart != nil {
		if err := s.callbacks.OnStart(ctx, version.String()); err != nil {
			return fmt.Errorf("start hook: %w", err)
		}
	}

	if err := os.MkdirAll(s.cfg.StagingDir, 0755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.cfg.StagingDir, "firmware-*.part")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	pw := &progressWriter{w: tmp, total: size, report: s.progress}
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(pw, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, s.maxBytes)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("short image: got %d of %d bytes", n, size)
	}
	if n == 0 {
		return fmt.Errorf("empty image")
	}

	final := filepath.Join(s.cfg.StagingDir, fmt.Sprintf("firmware-%s.bin", version))
	if err := os.Rename(tmpName, final); err != nil {
		return fmt.Errorf("finalise image: %w", err)
	}
	return nil
}

func (s *OTAService) progress(written, total int64, percent int) {
	s.mu.Lock()
	s.status.Progress = percent
	s.status.UpdatedAt = s.now()
	s.mu.Unlock()

	s.logger.Infof("OTA progress: %d%%", percent)
	if s.callbacks.OnProgress != nil {
		s.callbacks.OnProgress(written, total)
	}
}

func (s *OTAService) fail(version *semver.Version, err error) {
	s.mu.Lock()
	s.setStatusLocked(StateFailed, version.String(), s.status.Progress, err.Error())
	s.mu.Unlock()

	s.logger.Errorf("OTA update to %s failed: %v", version, err)
	if s.callbacks.OnError != nil {
		s.callbacks.OnError(err)
	}
}

func (s *OTAService) setStatusLocked(state, target string, progress int, errMsg string) {
	s.status = Status{
		State:     state,
		Current:   s.current.String(),
		Target:    target,
		Progress:  progress,
		Error:     errMsg,
		UpdatedAt: s.now(),
	}
}

// Status returns the last update state
func (s *OTAService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentVersion returns the running (or last staged) firmware version
func (s *OTAService) CurrentVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.String()
}

// progressWriter reports every completed 10% of a known total
type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	decile  int
	report  func(written, total int64, percent int)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.total > 0 {
		d := int(p.written * 10 / p.total)
		if d > 10 {
			d = 10
		}
		if d > p.decile {
			p.decile = d
			p.report(p.written, p.total, d*10)
		}
	}
	return n, err
}
