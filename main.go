package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/astaxie/beego/logs"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	config, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	srv, err := NewServer(config, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, ErrAddressInUse) {
			fmt.Fprintf(os.Stderr, "Error: Address %s is already in use\n", config.Address)
		} else {
			fmt.Fprintf(os.Stderr, "An error occurred: %v\n", err)
		}
		return 1
	}

	<-shutdown
	cancel()
	srv.Stop()
	return 0
}

// parseFlags builds the config from defaults, then an optional ini file, then
// the flags that were given explicitly.
func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("dos-web-server", flag.ContinueOnError)

	var (
		configPath   = fs.String("config", "", "ini file with server settings")
		addr         = fs.String("addr", defaultAddress, "listen address host:port")
		maxConns     = fs.Int("max-conns", 0, "maximum number of concurrent connections (required)")
		root         = fs.String("root", defaultDocumentRoot, "document root")
		index        = fs.String("index", defaultIndexFile, "index file served for directories")
		delay        = fs.Duration("delay", defaultProcessingDelay, "simulated processing time per request")
		readTimeout  = fs.Duration("read-timeout", defaultReadTimeout, "deadline for receiving the request head, 0 disables")
		writeTimeout = fs.Duration("write-timeout", defaultWriteTimeout, "deadline for sending the response, 0 disables")
		grace        = fs.Duration("grace", defaultGracePeriod, "time allowed for connections to drain on shutdown")
		logFile      = fs.String("log-file", defaultLogFile, "log file, empty for console only")
		logLevel     = fs.Int("log-level", logs.LevelInformational, "log level, 0 (emergency) to 7 (debug)")
	)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	config := defaultConfig()
	if *configPath != "" {
		var err error
		if config, err = LoadConfig(*configPath, config); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			config.Address = *addr
		case "max-conns":
			config.MaxConnections = *maxConns
		case "root":
			config.DocumentRoot = *root
		case "index":
			config.IndexFile = *index
		case "delay":
			config.ProcessingDelay = orDisabled(*delay)
		case "read-timeout":
			config.ReadTimeout = orDisabled(*readTimeout)
		case "write-timeout":
			config.WriteTimeout = orDisabled(*writeTimeout)
		case "grace":
			config.GracePeriod = *grace
		case "log-file":
			config.Log.File = *logFile
		case "log-level":
			config.Log.Level = *logLevel
		}
	})

	if config.MaxConnections < 1 {
		return Config{}, fmt.Errorf("%w: -max-conns (or max_connections) must be a positive integer", ErrInvalidConfig)
	}
	return config, nil
}
