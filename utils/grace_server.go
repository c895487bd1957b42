package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	// uploads in flight get this long to finish after a stop signal
	DefaultDrainTimeout = 30 * time.Second
)

// Server is an http.Server that drains on SIGTERM/SIGINT and then runs its
// shutdown hooks, e.g. stopping the proof janitor.
type Server struct {
	*http.Server

	drain    time.Duration
	signals  chan os.Signal
	stopOnce sync.Once
	done     chan struct{}
	hooks    []func()
	ready    chan net.Addr
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		drain:   DefaultDrainTimeout,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
		ready:   make(chan net.Addr, 1),
	}
}

// OnShutdown registers fn to run once the listener is closed and in-flight
// requests drained. Hooks run in registration order.
func (srv *Server) OnShutdown(fn func()) {
	srv.hooks = append(srv.hooks, fn)
}

// ListenAndServe serves until a stop signal arrives and returns nil after a
// clean drain.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv.ready <- ln.Addr()

	signal.Notify(srv.signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(srv.signals)
	go srv.awaitSignal()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-srv.done
	return nil
}

func (srv *Server) awaitSignal() {
	sig, ok := <-srv.signals
	if !ok {
		return
	}
	if Sugar != nil {
		Sugar.Infof("received %v, draining HTTP server", sig)
	}
	srv.Stop()
}

// Stop drains the server and runs the shutdown hooks. Safe to call repeatedly.
func (srv *Server) Stop() {
	srv.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.drain)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && Sugar != nil {
			Sugar.Errorf("HTTP server shutdown error: %v", err)
		}
		for _, fn := range srv.hooks {
			fn()
		}
		close(srv.done)
	})
}

// GraceServer serves handler on addr until SIGTERM/SIGINT; hooks run after the drain.
func GraceServer(addr string, handler http.Handler, hooks ...func()) error {
	srv := NewServer(addr, handler, DefaultReadTimeout, DefaultWriteTimeout)
	for _, h := range hooks {
		srv.OnShutdown(h)
	}
	return srv.ListenAndServe()
}
