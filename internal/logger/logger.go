// Package logger configures logrus for the whole process and bridges it into
// the echo server.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/pkg/check"
)

// levels are the accepted --level values.
var levels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level: "info",
		Color: true,
	}
}

// Config is the logging configuration.
type Config struct {
	Level      string `json:"level"`
	Color      bool   `json:"color"`
	Structured bool   `json:"structured"`
}

// Validate implements the check.Validatable interface.
func (c Config) Validate() []error {
	return []error{
		check.In(c.Level, levels, "invalid log level"),
	}
}

// SetLogrus applies the configuration to the global logrus logger.
func SetLogrus(c Config) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level: %s", c.Level))
	}
	logrus.SetLevel(level)

	if c.Structured {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   c.Color,
		DisableColors: !c.Color,
	})
}
