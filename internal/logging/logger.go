// Package logging - глобальный logrus логгер сервиса.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger - глобальная инстанция, до Init пишет в stderr с настройками по умолчанию.
var Logger = logrus.New()

var once sync.Once

type Options struct {
	Level   string
	Format  string // text | json
	File    string // пусто - только stdout
	Service string
}

// Init настраивает Logger один раз за жизнь процесса.
func Init(opts Options) {
	once.Do(func() {
		configure(Logger, opts)
		Logger.WithField("service", opts.Service).Info("✅ Логгер инициализирован")
	})
}

func configure(l *logrus.Logger, opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)
}
