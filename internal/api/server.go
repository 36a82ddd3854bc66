// Package api provides the REST API and WebSocket server for hamhd.
//
// It exposes bridge CRUD, lifecycle actions, device actions, and
// runtime/pairing read-outs (spec §6), plus the EXPANDED WebSocket
// event feed and device-history route.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Store is the subset of internal/store.Store the REST surface reads
// and writes directly (mutations beyond enqueueing an operation are
// limited to bridge config CRUD; lifecycle state changes flow through
// the dispatcher).
type Store interface {
	ListBridges() ([]model.BridgeConfig, error)
	GetBridge(id string) (model.BridgeConfig, error)
	UpsertBridge(bridge model.BridgeConfig) error
	ListOperations() ([]model.BridgeOperation, error)
	ListBridgeDevices(bridgeID string) ([]model.BridgeDevice, error)
	ListBridgeRuntime() ([]model.BridgeRuntimeEntry, error)
	GetBridgeRuntime(bridgeID string) (model.BridgeRuntimeState, bool, error)
}

// Queue is the subset of internal/queue.Queue the REST surface uses to
// enqueue lifecycle operations rather than performing them directly.
type Queue interface {
	Enqueue(bridgeID string, opType model.OperationType) (*model.BridgeOperation, error)
}

// Upstream is the subset of internal/upstream.Client the device action
// routes use to forward on/off/color commands.
type Upstream interface {
	CallService(ctx context.Context, domain, service, entityID string, extra map[string]any) error
}

// History is the subset of internal/infrastructure/sqlitehist.DB the
// device history route reads from. Optional — a nil History disables
// the route with a 404.
type History interface {
	History(ctx context.Context, bridgeID, entityID string, limit int) ([]model.DeviceStateRecord, error)
}

// Logger is the structured logger interface the server logs through.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Port     int
	Logger   Logger
	Store    Store
	Queue    Queue
	Upstream Upstream
	History  History // optional
	Version  string

	// Passcode and Discriminator parameterize the pure pairing-info
	// derivation (matterrt.PairingInfo) so the pairing route doesn't
	// need a running runtime to answer, per spec §4.5.
	Passcode      uint32
	Discriminator uint16

	// Hub, if set, is used as the WebSocket hub instead of one created
	// internally at Start. Lets main.go wire the same Hub into the
	// dispatcher's Notifier before the dispatcher starts draining the
	// queue.
	Hub *Hub
}

// Server is the HTTP API server for hamhd.
type Server struct {
	port      int
	logger    Logger
	store     Store
	queue     Queue
	upstream  Upstream
	history   History
	version   string
	startTime time.Time

	passcode      uint32
	discriminator uint16

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Queue == nil {
		return nil, fmt.Errorf("queue is required")
	}

	return &Server{
		port:      deps.Port,
		logger:    deps.Logger,
		store:     deps.Store,
		queue:     deps.Queue,
		upstream:  deps.Upstream,
		history:   deps.History,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       deps.Hub,

		passcode:      deps.Passcode,
		discriminator: deps.Discriminator,
	}, nil
}

// Start begins listening for HTTP connections.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	go s.hub.Run(srvCtx)

	router := s.buildRouter()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
