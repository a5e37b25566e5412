package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: "2006/01/02"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "link lost",
		Data:    logrus.Fields{"mode": "station", "attempt": 3},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	expected := "2025/04/06 [WAR] link lost attempt=3 mode=station\n"
	if string(out) != expected {
		t.Errorf("Expected %q, got %q", expected, string(out))
	}
}

func TestNewLogrusLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogrusLogger("debug", dir, Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewLogrusLogger failed: %v", err)
	}
	logger.WithField("wheel", "left").Infof("duty=%d", 140)

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INF] duty=140 wheel=left") {
		t.Errorf("Unexpected log file content: %q", string(data))
	}
}

func TestNewLogrusLoggerInvalidLevelFallsBack(t *testing.T) {
	logger, err := NewLogrusLogger("loud", "", Rotation{})
	if err != nil {
		t.Fatalf("NewLogrusLogger failed: %v", err)
	}
	l := logger.(*logrusLogger)
	if l.entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level fallback, got %s", l.entry.Logger.GetLevel())
	}
}
