package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := logrus.New()

	configure(l, Options{Level: "debug", Format: "json", File: path})
	l.WithField("task_id", "abc").Debug("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file, got %v", err)
	}
	if !strings.Contains(string(data), `"task_id":"abc"`) {
		t.Errorf("Expected structured field in log, got %s", data)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", l.GetLevel())
	}
}

func TestConfigureFallsBackToInfo(t *testing.T) {
	l := logrus.New()
	configure(l, Options{Level: "loud"})

	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %s", l.GetLevel())
	}
}
