// Package server owns the gateway process: the HTTP listener, the optional
// COMMS command transport, the request counter and shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"
	comms "github.com/nats-io/nats.go"
	"github.com/sourcegraph/conc"

	"github.com/morezero/tts-gateway/internal/config"
	"github.com/morezero/tts-gateway/pkg/dispatcher"
	"github.com/morezero/tts-gateway/pkg/events"
	"github.com/morezero/tts-gateway/pkg/facade"
)

const logPrefix = "server:server"

// StatusBody is the GET /status response.
type StatusBody struct {
	Success bool  `json:"success"`
	ReqNum  int64 `json:"reqnum"`
}

// Server is the tts-gateway process.
type Server struct {
	cfg       *config.Config
	disp      *dispatcher.Dispatcher
	publisher events.EventPublisher
	nc        *comms.Conn
	handler   http.Handler

	// reqnum counts command requests since start, on every transport.
	reqnum atomic.Int64

	httpServer *http.Server
	listener   net.Listener
	sub        *comms.Subscription
	lifecycle  conc.WaitGroup

	stopCh   chan struct{}
	stopReq  sync.Once
	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

// NewServerParams holds the collaborators of a Server.
type NewServerParams struct {
	Config *config.Config
	API    facade.TradeAPI
	// Comms enables the command transport on Config.CommandSubject. Optional.
	Comms *comms.Conn
	// Publisher receives one CommandEvent per request. Nil uses NoOpPublisher.
	Publisher events.EventPublisher
}

// New creates a Server. Nothing is bound until Start.
func New(params NewServerParams) *Server {
	s := &Server{
		cfg:       params.Config,
		publisher: params.Publisher,
		nc:        params.Comms,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	if s.publisher == nil {
		s.publisher = &events.NoOpPublisher{}
	}
	s.disp = dispatcher.NewDispatcher(params.API, s.requestStop)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api", s.handleAPI)
	mux.HandleFunc("GET /status", s.handleStatus)
	s.handler = connectionCloseMiddleware(mux)
	return s
}

// Handler returns the HTTP routes with the Connection: close policy applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listener, serves HTTP in the background and subscribes to
// the command subject when COMMS is configured. Start must not be called
// twice.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", logPrefix, s.cfg.Addr(), err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	s.httpServer.SetKeepAlivesEnabled(false)

	s.lifecycle.Go(func() {
		slog.Info(fmt.Sprintf("%s - HTTP listening on %s", logPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	})

	if s.nc != nil {
		sub, err := s.nc.Subscribe(s.cfg.CommandSubject, s.handleCommsMsg)
		if err != nil {
			s.httpServer.Close()
			s.lifecycle.Wait()
			return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, s.cfg.CommandSubject, err)
		}
		s.sub = sub
		slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, s.cfg.CommandSubject))
	}

	go s.awaitStop()
	return nil
}

// Addr is the bound listener address. Empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ReqNum is the number of command requests received since start.
func (s *Server) ReqNum() int64 {
	return s.reqnum.Load()
}

// StopRequested is closed once a stop_server command has been received.
func (s *Server) StopRequested() <-chan struct{} {
	return s.stopCh
}

// Done is closed when Stop has finished.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stop unsubscribes the command transport, stops accepting connections and
// drains in-flight sessions for up to ShutdownTimeout, after which remaining
// connections are closed. It is safe to call more than once and from any
// goroutine.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		defer close(s.done)
		slog.Info(fmt.Sprintf("%s - Stopping", logPrefix))

		if s.sub != nil {
			if err := s.sub.Unsubscribe(); err != nil {
				slog.Warn(fmt.Sprintf("%s - unsubscribe %s: %v", logPrefix, s.cfg.CommandSubject, err))
			}
		}
		if s.httpServer == nil {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn(fmt.Sprintf("%s - graceful drain incomplete, closing connections: %v", logPrefix, err))
			s.httpServer.Close()
			s.stopErr = fmt.Errorf("%s - shutdown: %w", logPrefix, err)
		}
		s.lifecycle.Wait()
		slog.Info(fmt.Sprintf("%s - Stopped", logPrefix))
	})
	return s.stopErr
}

// requestStop is the dispatcher's stop_server hook. It only signals; the
// listener is stopped from awaitStop, outside the request path.
func (s *Server) requestStop() {
	s.stopReq.Do(func() { close(s.stopCh) })
}

func (s *Server) awaitStop() {
	select {
	case <-s.stopCh:
		slog.Info(fmt.Sprintf("%s - stop_server received, shutting down", logPrefix))
		if err := s.Stop(context.Background()); err != nil {
			slog.Warn(fmt.Sprintf("%s - %v", logPrefix, err))
		}
	case <-s.done:
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(StatusBody{Success: true, ReqNum: s.reqnum.Load()})
	if err != nil {
		slog.Error(fmt.Sprintf("%s - encode status: %v", logPrefix, err))
		return
	}
	writeJSON(w, data)
}

func connectionCloseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error(fmt.Sprintf("%s - write response: %v", logPrefix, err))
	}
}
