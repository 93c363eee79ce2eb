package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func setupLogger(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		FullTimestamp:   true,
	})
	return nil
}

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.Errorf("%+v", err)
		os.Exit(1)
	}
}
