package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/astaxie/beego/config"
	"github.com/astaxie/beego/logs"
	"github.com/astaxie/beego/utils"
)

const (
	defaultAddress         = "127.0.0.1:8080"
	defaultDocumentRoot    = "."
	defaultIndexFile       = "index.html"
	defaultProcessingDelay = 2 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultGracePeriod     = 3 * time.Second
	defaultLogFile         = "server_log.txt"
)

// Disabled turns off ProcessingDelay, ReadTimeout or WriteTimeout. A zero
// value means the default instead.
const Disabled time.Duration = -1

var ErrInvalidConfig = errors.New("invalid configuration")

// withDefaults fills zero fields. MaxConnections is left alone; it has to be
// chosen explicitly.
func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = defaultAddress
	}
	if c.DocumentRoot == "" {
		c.DocumentRoot = defaultDocumentRoot
	}
	if c.IndexFile == "" {
		c.IndexFile = defaultIndexFile
	}
	if c.ProcessingDelay == 0 {
		c.ProcessingDelay = defaultProcessingDelay
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaultGracePeriod
	}
	return c
}

// orDisabled maps an explicit zero from a flag or file onto Disabled.
func orDisabled(d time.Duration) time.Duration {
	if d == 0 {
		return Disabled
	}
	return d
}

func (c Config) validate() error {
	if c.MaxConnections < 1 {
		return fmt.Errorf("%w: max connections must be a positive integer, got %d", ErrInvalidConfig, c.MaxConnections)
	}
	return nil
}

// defaultConfig is what the command line starts from before any file or flag.
func defaultConfig() Config {
	return Config{
		Address:         defaultAddress,
		DocumentRoot:    defaultDocumentRoot,
		IndexFile:       defaultIndexFile,
		ProcessingDelay: defaultProcessingDelay,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		GracePeriod:     defaultGracePeriod,
		Log: LogConfig{
			File:  defaultLogFile,
			Level: logs.LevelInformational,
			Color: true,
		},
	}
}

// LoadConfig reads an ini file and lays its values over base. Keys missing
// from the file keep the value from base.
func LoadConfig(path string, base Config) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return base, err
	}
	if !utils.FileExists(abs) {
		return base, fmt.Errorf("%w: config file %s does not exist", ErrInvalidConfig, path)
	}

	ac, err := config.NewConfig("ini", abs)
	if err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return applyConfig(ac, base)
}

func applyConfig(ac config.Configer, c Config) (Config, error) {
	c.Address = ac.DefaultString("address", c.Address)
	c.MaxConnections = ac.DefaultInt("max_connections", c.MaxConnections)
	c.DocumentRoot = ac.DefaultString("document_root", c.DocumentRoot)
	c.IndexFile = ac.DefaultString("index_file", c.IndexFile)
	c.Log.File = ac.DefaultString("log_file", c.Log.File)
	c.Log.Level = ac.DefaultInt("log_level", c.Log.Level)
	c.Log.Color = ac.DefaultBool("log_color", c.Log.Color)

	durations := []struct {
		key       string
		dst       *time.Duration
		zeroIsOff bool
	}{
		{"processing_delay", &c.ProcessingDelay, true},
		{"read_timeout", &c.ReadTimeout, true},
		{"write_timeout", &c.WriteTimeout, true},
		{"grace_period", &c.GracePeriod, false},
	}
	for _, d := range durations {
		s := ac.String(d.key)
		if s == "" {
			continue
		}
		v, err := time.ParseDuration(s)
		if err != nil {
			return c, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.key, err)
		}
		if d.zeroIsOff {
			v = orDisabled(v)
		}
		*d.dst = v
	}
	return c, nil
}
