package main

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/astaxie/beego/logs"
	"github.com/puzpuzpuz/xsync/v3"
)

type (
	Server interface {
		Start(ctx context.Context) error
		Stop()
		Addr() net.Addr
		Stats() Stats
	}

	Config struct {
		Address         string
		MaxConnections  int
		DocumentRoot    string
		IndexFile       string
		ProcessingDelay time.Duration // simulated work per request, permit held; Disabled for none
		ReadTimeout     time.Duration // deadline for the whole request head
		WriteTimeout    time.Duration // added on top of ReadTimeout for the response
		GracePeriod     time.Duration
		Log             LogConfig
	}

	LogConfig struct {
		File  string
		Level int
		Color bool
	}

	Stats struct {
		Live      int
		Held      int
		Available int
		Accepted  uint64
		Rejected  uint64
	}

	trackedConn struct {
		conn   net.Conn
		cancel context.CancelFunc
	}

	server struct {
		config    Config
		logger    *logs.BeeLogger
		admission *admission
		handler   *requestHandler

		listener   net.Listener
		closeOnce  sync.Once
		acceptDone chan struct{}

		wg           sync.WaitGroup
		connections  *xsync.MapOf[int64, trackedConn]
		connectionID int64 // atomic

		mu              sync.Mutex
		liveConnections int

		accepted atomic.Uint64
		rejected atomic.Uint64
	}
)
