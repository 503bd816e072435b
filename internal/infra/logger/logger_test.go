package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"birthday_notification_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newRoot(&buf)
	configure(l, &config.AppConfig{LogLevel: "debug", Environment: "production", Warnings: []string{"TWILIO_FROM not set"}})

	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", l.GetLevel())
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("last line is not JSON: %v\n%s", err, buf.String())
	}
	if last["msg"] != "TWILIO_FROM not set" || last["component"] != "config" || last["level"] != "warning" {
		t.Fatalf("warning entry = %v", last)
	}
}

func TestConfigureBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := newRoot(&buf)
	configure(l, &config.AppConfig{LogLevel: "loud", Environment: "development"})

	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s, want info", l.GetLevel())
	}
	if !strings.Contains(buf.String(), `Invalid log level \"loud\"`) && !strings.Contains(buf.String(), `Invalid log level "loud"`) {
		t.Fatalf("no warning for the bad level:\n%s", buf.String())
	}
}

func TestForTagsComponent(t *testing.T) {
	if got := For("dispatcher").Data[componentField]; got != "dispatcher" {
		t.Fatalf("component = %v, want dispatcher", got)
	}
}
