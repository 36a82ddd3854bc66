package matterrt

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// responderConcurrency bounds the responder task's simultaneous
// readers and writers (spec: "4 readers x 4 writers").
const responderConcurrency = 4

// persistInterval is how often the persistence loop snapshots psm
// state to disk.
const persistInterval = 30 * time.Second

// Logger is the subset of *slog.Logger the runtime needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config configures one bridge's Matter runtime.
type Config struct {
	BridgeID      string
	Port          uint16
	Passcode      uint32
	Discriminator uint16
	StorageRoot   string
	Devices       []model.BridgeDevice
	Logger        Logger
}

// Runtime is one bridge's independent Matter node: transport,
// data-model dispatch, responder, mDNS, and persistence, running as
// five cooperatively-scheduled tasks under one errgroup, communicating
// only via the command channel. Modeled on the teacher's knx Bridge
// lifecycle (done/wg/stopOnce/ctx/ctxCancel).
type Runtime struct {
	cfg    Config
	logger Logger

	arena *endpointArena

	conn *net.UDPConn

	commands chan command

	ctx       context.Context
	ctxCancel context.CancelFunc
	group     *errgroup.Group

	done     chan struct{}
	stopOnce sync.Once

	readers *semaphore.Weighted
	writers *semaphore.Weighted

	mu            sync.RWMutex
	commissioned  bool
	mdnsShutdown  func()
	startUpOnOffs map[uint16]StartUpOnOffEnum
}

// Handle is the subset of Runtime the Dispatcher is allowed to drive.
type Handle interface {
	UpdateStates(states []model.EntityState) error
	UpdateDevices(devices []model.BridgeDevice) error
	FactoryReset() error
	Shutdown() error
	PairingInfo() model.PairingInfo
}

// Start builds and launches a Runtime for cfg, binding its UDP
// transport immediately so a port conflict is reported synchronously
// rather than after the caller believes the bridge is running.
func Start(parent context.Context, cfg Config) (*Runtime, error) {
	addr := &net.UDPAddr{IP: net.IPv6unspecified, Port: int(cfg.Port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		if v4, v4Err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(cfg.Port)}); v4Err == nil {
			conn = v4
		} else {
			return nil, &PortInUseError{Port: cfg.Port, Err: err}
		}
	}

	snap, err := loadSnapshot(cfg.StorageRoot, cfg.BridgeID)
	if err != nil {
		_ = conn.Close()
		return nil, &IOError{Op: "load snapshot", Err: err}
	}

	arena := newEndpointArena()
	arena.rebuild(cfg.Devices, cfg.Logger)

	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)

	rt := &Runtime{
		cfg:           cfg,
		logger:        cfg.Logger,
		arena:         arena,
		conn:          conn,
		commands:      make(chan command, commandChannelCapacity),
		ctx:           gctx,
		ctxCancel:     cancel,
		group:         group,
		done:          make(chan struct{}),
		readers:       semaphore.NewWeighted(responderConcurrency),
		writers:       semaphore.NewWeighted(responderConcurrency),
		commissioned:  snap.Commissioned,
		startUpOnOffs: snap.StartUpOnOffByEP,
	}

	if !rt.commissioned {
		rt.logCommissioningPayload()
	}

	group.Go(func() error { return rt.transportLoop(gctx) })
	group.Go(func() error { return rt.dataModelLoop(gctx) })
	group.Go(func() error { return rt.responderLoop(gctx) })
	group.Go(func() error { return rt.mdnsLoop(gctx) })
	group.Go(func() error { return rt.persistenceLoop(gctx) })

	rt.log("matter runtime started", "bridge_id", cfg.BridgeID, "port", cfg.Port, "devices", len(cfg.Devices))

	return rt, nil
}

// transportLoop reads inbound UDP datagrams and decodes them into
// frames. In this placeholder wire layer, inbound frames are simply
// discarded after decode — there is no
// certified session layer to route replies through.
func (rt *Runtime) transportLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = rt.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, _, err := rt.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
				return &IOError{Op: "transport read", Err: err}
			}
		}

		if _, err := decodeFrame(buf[:n]); err != nil {
			rt.log("dropping malformed frame", "error", err.Error())
		}
	}
}

// dataModelLoop consumes commands from the Dispatcher and applies them
// to the endpoint arena.
func (rt *Runtime) dataModelLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-rt.commands:
			rt.apply(cmd)
			if cmd.done != nil {
				close(cmd.done)
			}
			if cmd.kind == cmdShutdown {
				rt.ctxCancel()
				return nil
			}
		}
	}
}

func (rt *Runtime) apply(cmd command) {
	switch cmd.kind {
	case cmdUpdateStates:
		for _, s := range cmd.states {
			ep, ok := rt.arena.endpointFor(s.EntityID)
			if !ok {
				continue
			}
			h, ok := rt.arena.onOffHandler(ep)
			if !ok {
				continue
			}
			h.apply(s.On)
		}
	case cmdUpdateDevices:
		rt.arena.rebuild(cmd.devices, rt.logger)
		rt.log("device list rebuilt; endpoint tree changes require a restart to take effect", "devices", len(cmd.devices))
	case cmdFactoryReset:
		if err := eraseSnapshot(rt.cfg.StorageRoot, rt.cfg.BridgeID); err != nil {
			rt.log("factory reset erase failed", "error", err.Error())
		}
		rt.mu.Lock()
		rt.commissioned = false
		rt.startUpOnOffs = map[uint16]StartUpOnOffEnum{}
		rt.mu.Unlock()
		rt.logCommissioningPayload()
	case cmdShutdown:
		// handled by caller after apply returns
	}
}

// responderLoop answers pending exchanges, its concurrency bounded to
// responderConcurrency readers and writers via a weighted semaphore.
func (rt *Runtime) responderLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// No certified session layer means there is nothing queued to
			// respond to in this placeholder runtime. respond demonstrates
			// the bounded-concurrency shape real exchange handling would
			// plug into: acquire a reader slot, decode, acquire a writer
			// slot, reply.
			if rt.readers.TryAcquire(1) {
				rt.readers.Release(1)
			}
		}
	}
}

// respond would answer one exchange within the reader/writer bounds;
// reserved for a real interaction-model implementation.
func (rt *Runtime) respond(ctx context.Context, f frame) error {
	if err := rt.readers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer rt.readers.Release(1)

	if err := rt.writers.Acquire(ctx, 1); err != nil {
		return err
	}
	defer rt.writers.Release(1)

	_ = f
	return ErrNotImplemented
}

// mdnsLoop advertises this bridge over DNS-SD for its lifetime.
func (rt *Runtime) mdnsLoop(ctx context.Context) error {
	rt.mu.RLock()
	commissionable := !rt.commissioned
	rt.mu.RUnlock()

	shutdown, err := advertiseMDNS(rt.cfg.BridgeID, int(rt.cfg.Port), commissionable)
	if err != nil {
		return &IOError{Op: "mdns advertise", Err: err}
	}
	rt.mu.Lock()
	rt.mdnsShutdown = shutdown
	rt.mu.Unlock()

	<-ctx.Done()

	rt.mu.Lock()
	if rt.mdnsShutdown != nil {
		rt.mdnsShutdown()
		rt.mdnsShutdown = nil
	}
	rt.mu.Unlock()
	return nil
}

// persistenceLoop periodically snapshots fabric/ACL state to disk.
func (rt *Runtime) persistenceLoop(ctx context.Context) error {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return rt.snapshotNow()
		case <-ticker.C:
			if err := rt.snapshotNow(); err != nil {
				rt.log("persistence snapshot failed", "error", err.Error())
			}
		}
	}
}

func (rt *Runtime) snapshotNow() error {
	rt.mu.RLock()
	snap := psmSnapshot{
		Commissioned:     rt.commissioned,
		StartUpOnOffByEP: rt.startUpOnOffs,
	}
	rt.mu.RUnlock()
	return saveSnapshot(rt.cfg.StorageRoot, rt.cfg.BridgeID, snap)
}

func (rt *Runtime) logCommissioningPayload() {
	info := PairingInfo(rt.cfg.BridgeID, rt.cfg.Passcode, rt.cfg.Discriminator)
	rt.log("commissioning window open", "bridge_id", rt.cfg.BridgeID, "manual_code", info.ManualCode)
	rt.log(info.QRUnicode)
}

func (rt *Runtime) log(msg string, args ...any) {
	if rt.logger != nil {
		rt.logger.Info(msg, args...)
	}
}

func (rt *Runtime) send(cmd command) error {
	select {
	case rt.commands <- cmd:
		return nil
	case <-rt.ctx.Done():
		return fmt.Errorf("matterrt: runtime for bridge %s is stopped", rt.cfg.BridgeID)
	}
}

// UpdateStates pushes on/off updates into the running OnOff hooks.
// Unknown entity ids are silently dropped, per spec.
func (rt *Runtime) UpdateStates(states []model.EntityState) error {
	return rt.send(command{kind: cmdUpdateStates, states: states})
}

// UpdateDevices rebuilds the entity-to-endpoint map. The endpoint tree
// itself only takes effect on the next Start.
func (rt *Runtime) UpdateDevices(devices []model.BridgeDevice) error {
	return rt.send(command{kind: cmdUpdateDevices, devices: devices})
}

// FactoryReset erases persisted fabric state and reopens commissioning.
func (rt *Runtime) FactoryReset() error {
	return rt.send(command{kind: cmdFactoryReset})
}

// Shutdown gracefully stops the runtime and waits for all five tasks
// to exit.
func (rt *Runtime) Shutdown() error {
	var err error
	rt.stopOnce.Do(func() {
		done := make(chan struct{})
		sendErr := rt.send(command{kind: cmdShutdown, done: done})
		if sendErr == nil {
			select {
			case <-done:
			case <-time.After(5 * time.Second):
			}
		}
		rt.ctxCancel()
		waitErr := rt.group.Wait()
		_ = rt.conn.Close()
		close(rt.done)
		if waitErr != nil {
			err = &RuntimeError{Message: waitErr.Error()}
		}
	})
	return err
}

// PairingInfo returns this runtime's deterministic commissioning
// material without requiring the runtime to be running — callers
// should prefer the package-level PairingInfo function when no
// Runtime instance is at hand.
func (rt *Runtime) PairingInfo() model.PairingInfo {
	return PairingInfo(rt.cfg.BridgeID, rt.cfg.Passcode, rt.cfg.Discriminator)
}

// EndpointCount reports how many bridged-device endpoints are active.
func (rt *Runtime) EndpointCount() int {
	return rt.arena.endpointCount()
}
