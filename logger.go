package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger writes JSON logs to a rotated file. The terminal itself belongs
// to the TUI, so nothing is ever logged to stdout.
func newLogger(logDir string) (*logrus.Logger, error) {
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "uploadai.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	return log, nil
}
