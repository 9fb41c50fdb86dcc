package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigure(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"defaults", "", "", logrus.InfoLevel, false},
		{"debug text", "debug", "text", logrus.DebugLevel, false},
		{"json", "warn", "JSON", logrus.WarnLevel, true},
		{"garbage level", "loud", "", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := logrus.New()
			configure(l, tt.level, tt.format)

			if l.GetLevel() != tt.wantLevel {
				t.Errorf("level = %v, want %v", l.GetLevel(), tt.wantLevel)
			}
			_, isJSON := l.Formatter.(*logrus.JSONFormatter)
			if isJSON != tt.wantJSON {
				t.Errorf("json formatter = %v, want %v", isJSON, tt.wantJSON)
			}
		})
	}
}

func TestLogUsableBeforeInit(t *testing.T) {
	if Log == nil {
		t.Fatal("Log must not be nil before Init")
	}
	Component("test").Info("silent")
}
