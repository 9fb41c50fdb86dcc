package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего приложения.
//
// До вызова Init логгер пишет в io.Discard: пакеты (и тесты), которые
// работают без main, не падают на nil и не засоряют вывод.
var Log = newSilent()

var initOnce sync.Once

func newSilent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Init инициализирует глобальный логгер.
// Вызывается один раз при старте приложения в main.go, повторные вызовы игнорируются.
func Init() {
	initOnce.Do(func() {
		configure(Log, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		Log.SetOutput(os.Stdout)
	})
}

// configure выставляет уровень и форматтер.
// По умолчанию - "info" и текстовый формат; "json" - для продакшена и сбора логов.
func configure(l *logrus.Logger, logLevel, logFormat string) {
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.ToLower(logFormat) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// Component возвращает логгер с полем component, как принято во всех пакетах.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
