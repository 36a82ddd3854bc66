// Package dispatcher implements the single cooperative task that
// drains the operation queue and drives each bridge's Matter runtime
// lifecycle, per spec §4.6.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/hamh-bridge/internal/mapper"
	"github.com/nerrad567/hamh-bridge/internal/matterrt"
	"github.com/nerrad567/hamh-bridge/internal/model"
)

// idlePollInterval is how long the dispatcher sleeps when the queue is
// empty, per spec §4.6.
const idlePollInterval = 500 * time.Millisecond

// Store is the subset of internal/store.Store the dispatcher drives.
type Store interface {
	GetBridge(id string) (model.BridgeConfig, error)
	NextQueuedOperation() (model.BridgeOperation, bool, error)
	UpdateOperation(op model.BridgeOperation) error
	ListBridgeDevices(bridgeID string) ([]model.BridgeDevice, error)
	SetBridgeDevices(bridgeID string, devices []model.BridgeDevice) error
	DeleteBridgeDevices(bridgeID string) error
	GetBridgeRuntime(bridgeID string) (model.BridgeRuntimeState, bool, error)
	SetBridgeRuntime(bridgeID string, rs model.BridgeRuntimeState) error
	DeleteBridgeRuntime(bridgeID string) error
	DeleteBridge(id string) error
}

// Upstream is the subset of internal/upstream.Client the dispatcher
// needs to build device lists.
type Upstream interface {
	Connect(ctx context.Context) error
	ListEntityDescriptors(ctx context.Context) ([]model.EntityDescriptor, error)
}

// MetricsSink is implemented by internal/infrastructure/tsdb.Client.
// Optional — a nil MetricsSink disables the supplement.
type MetricsSink interface {
	WriteOperationMetric(op model.BridgeOperation) error
	WriteQueueDepth(depth int) error
}

// HistorySink is implemented by internal/infrastructure/sqlitehist.DB.
// Optional — a nil HistorySink disables the supplement.
type HistorySink interface {
	Record(rec model.DeviceStateRecord) error
}

// Notifier is implemented by internal/api.Hub. Optional — a nil
// Notifier disables the live WebSocket push (EXPANDED, spec §4.7).
type Notifier interface {
	BroadcastRuntime(bridgeID string, state model.BridgeRuntimeState)
	BroadcastDevices(bridgeID string, devices []model.BridgeDevice)
}

// RuntimeStarter starts a Matter runtime for cfg. Satisfied by an
// adapter over matterrt.Start (main.go wires the concrete function, so
// this package never imports *matterrt.Runtime directly).
type RuntimeStarter func(ctx context.Context, cfg matterrt.Config) (matterrt.Handle, error)

// Logger is the structured logger interface the dispatcher logs
// through.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config configures a Dispatcher.
type Config struct {
	Store         Store
	Upstream      Upstream
	StartRuntime  RuntimeStarter
	StorageRoot   string
	Passcode      uint32
	Discriminator uint16
	Metrics       MetricsSink // optional
	History       HistorySink // optional
	Notifier      Notifier    // optional
	Logger        Logger
}

// Dispatcher owns the bridge_id -> running Handle map and the single
// goroutine that drains the operation queue.
type Dispatcher struct {
	store         Store
	upstream      Upstream
	startRuntime  RuntimeStarter
	storageRoot   string
	passcode      uint32
	discriminator uint16
	metrics       MetricsSink
	history       HistorySink
	notifier      Notifier
	logger        Logger

	mu           sync.RWMutex
	handles      map[string]matterrt.Handle
	entityBridge map[string]string

	upstreamLogOnce sync.Once

	group     *errgroup.Group
	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New builds a Dispatcher. Call Start to begin draining the queue.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		store:         cfg.Store,
		upstream:      cfg.Upstream,
		startRuntime:  cfg.StartRuntime,
		storageRoot:   cfg.StorageRoot,
		passcode:      cfg.Passcode,
		discriminator: cfg.Discriminator,
		metrics:       cfg.Metrics,
		history:       cfg.History,
		notifier:      cfg.Notifier,
		logger:        cfg.Logger,
		handles:       make(map[string]matterrt.Handle),
		entityBridge:  make(map[string]string),
	}
}

// Start launches the dispatcher's single background goroutine.
func (d *Dispatcher) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	d.ctx = gctx
	d.ctxCancel = cancel
	d.group = group

	group.Go(func() error {
		d.run(gctx)
		return nil
	})
}

// Stop gracefully shuts down the dispatcher and every running Matter
// runtime it owns.
func (d *Dispatcher) Stop() {
	if d.ctxCancel == nil {
		return
	}
	d.ctxCancel()
	_ = d.group.Wait()

	d.mu.Lock()
	handles := d.handles
	d.handles = make(map[string]matterrt.Handle)
	d.mu.Unlock()

	for id, h := range handles {
		if err := h.Shutdown(); err != nil {
			d.logError("shutdown during dispatcher stop failed", "bridge_id", id, "error", err.Error())
		}
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := d.upstream.Connect(ctx); err != nil {
			d.logWarn("upstream connect failed", "error", err.Error())
		} else {
			d.upstreamLogOnce.Do(func() {
				descriptors, err := d.upstream.ListEntityDescriptors(ctx)
				if err == nil {
					d.logInfo("upstream connected", "entities", len(descriptors))
				}
			})
		}

		op, ok, err := d.store.NextQueuedOperation()
		if err != nil {
			d.logError("reading next queued operation failed", "error", err.Error())
			d.sleep(ctx, idlePollInterval)
			continue
		}
		if !ok {
			d.sleep(ctx, idlePollInterval)
			continue
		}

		d.processOperation(ctx, op)
	}
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Dispatcher) processOperation(ctx context.Context, op model.BridgeOperation) {
	now := time.Now()
	op.Status = model.StatusRunning
	op.StartedAt = &now
	if err := d.store.UpdateOperation(op); err != nil {
		d.logError("marking operation running failed", "operation_id", op.OperationID, "error", err.Error())
		return
	}

	opErr := d.dispatch(ctx, op)

	finished := time.Now()
	op.FinishedAt = &finished
	if opErr != nil {
		op.Status = model.StatusFailed
		op.Error = opErr.Error()
	} else {
		op.Status = model.StatusCompleted
		op.Error = ""
	}
	if err := d.store.UpdateOperation(op); err != nil {
		d.logError("recording operation outcome failed", "operation_id", op.OperationID, "error", err.Error())
	}

	if d.metrics != nil {
		if err := d.metrics.WriteOperationMetric(op); err != nil {
			d.logWarn("operation metric write failed", "error", err.Error())
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, op model.BridgeOperation) error {
	switch op.OpType {
	case model.OpCreate, model.OpUpdate:
		_, err := d.buildAndSetDevices(ctx, op.BridgeID)
		return err
	case model.OpStart:
		return d.handleStart(ctx, op.BridgeID, op.OperationID)
	case model.OpStop:
		return d.handleStop(op.BridgeID)
	case model.OpRefresh:
		return d.handleRefresh(ctx, op.BridgeID)
	case model.OpFactoryReset:
		return d.handleFactoryReset(op.BridgeID)
	case model.OpDelete:
		return d.handleDelete(op.BridgeID)
	default:
		return fmt.Errorf("dispatcher: unknown op_type %q", op.OpType)
	}
}

// buildAndSetDevices rebuilds bridgeID's device list from upstream
// descriptors and persists it, also refreshing the entity->bridge
// routing table used by ApplyEntityState.
func (d *Dispatcher) buildAndSetDevices(ctx context.Context, bridgeID string) ([]model.BridgeDevice, error) {
	bridge, err := d.store.GetBridge(bridgeID)
	if err != nil {
		return nil, err
	}
	descriptors, err := d.upstream.ListEntityDescriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: listing upstream entities: %w", err)
	}
	devices := mapper.BuildBridgeDevices(bridge.Filter, descriptors)
	if err := d.store.SetBridgeDevices(bridgeID, devices); err != nil {
		return nil, err
	}

	d.mu.Lock()
	for entityID, bID := range d.entityBridge {
		if bID == bridgeID {
			delete(d.entityBridge, entityID)
		}
	}
	for _, dev := range devices {
		d.entityBridge[dev.EntityID] = bridgeID
	}
	d.mu.Unlock()

	if d.notifier != nil {
		d.notifier.BroadcastDevices(bridgeID, devices)
	}

	return devices, nil
}

func (d *Dispatcher) handleStart(ctx context.Context, bridgeID, operationID string) error {
	bridge, err := d.store.GetBridge(bridgeID)
	if err != nil {
		return err
	}
	devices, err := d.buildAndSetDevices(ctx, bridgeID)
	if err != nil {
		return err
	}

	handle, err := d.startRuntime(d.ctx, matterrt.Config{
		BridgeID:      bridgeID,
		Port:          bridge.Port,
		Passcode:      d.passcode,
		Discriminator: d.discriminator,
		StorageRoot:   d.storageRoot,
		Devices:       devices,
		Logger:        d.logger,
	})
	if err != nil {
		_ = d.setRuntimeState(bridgeID, model.RuntimeError, err.Error(), operationID)
		return err
	}

	d.mu.Lock()
	d.handles[bridgeID] = handle
	d.mu.Unlock()

	return d.setRuntimeState(bridgeID, model.RuntimeRunning, "", operationID)
}

func (d *Dispatcher) handleStop(bridgeID string) error {
	handle, ok := d.takeHandle(bridgeID)
	if !ok {
		return d.setRuntimeState(bridgeID, model.RuntimeStopped, "", "")
	}
	if err := handle.Shutdown(); err != nil {
		_ = d.setRuntimeState(bridgeID, model.RuntimeError, err.Error(), "")
		return err
	}
	return d.setRuntimeState(bridgeID, model.RuntimeStopped, "", "")
}

func (d *Dispatcher) handleRefresh(ctx context.Context, bridgeID string) error {
	devices, err := d.buildAndSetDevices(ctx, bridgeID)
	if err != nil {
		return err
	}
	d.mu.RLock()
	handle, ok := d.handles[bridgeID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := handle.UpdateDevices(devices); err != nil {
		return err
	}
	d.logWarn("refresh applied to running bridge; endpoint tree changes require a restart", "bridge_id", bridgeID)
	return nil
}

func (d *Dispatcher) handleFactoryReset(bridgeID string) error {
	d.mu.RLock()
	handle, ok := d.handles[bridgeID]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("dispatcher: bridge %s is not running, cannot factory reset", bridgeID)
	}
	return handle.FactoryReset()
}

func (d *Dispatcher) handleDelete(bridgeID string) error {
	if handle, ok := d.takeHandle(bridgeID); ok {
		if err := handle.Shutdown(); err != nil {
			d.logWarn("best-effort shutdown before delete failed", "bridge_id", bridgeID, "error", err.Error())
		}
	}
	return d.store.DeleteBridge(bridgeID)
}

// Handle returns the running Matter runtime handle for bridgeID, if the
// bridge is currently started.
func (d *Dispatcher) Handle(bridgeID string) (matterrt.Handle, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handles[bridgeID]
	return h, ok
}

func (d *Dispatcher) takeHandle(bridgeID string) (matterrt.Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.handles[bridgeID]
	if ok {
		delete(d.handles, bridgeID)
	}
	return h, ok
}

func (d *Dispatcher) setRuntimeState(bridgeID string, status model.RuntimeStatus, lastErr, operationID string) error {
	state := model.BridgeRuntimeState{
		Status:      status,
		LastError:   lastErr,
		OperationID: operationID,
		UpdatedAt:   time.Now(),
	}
	if err := d.store.SetBridgeRuntime(bridgeID, state); err != nil {
		return err
	}
	if d.notifier != nil {
		d.notifier.BroadcastRuntime(bridgeID, state)
	}
	return nil
}

// ApplyEntityState routes one upstream state change (from the MQTT
// statestream supplement) to the bridge that currently bridges it, if
// any, and records it in the optional history sink.
func (d *Dispatcher) ApplyEntityState(state model.EntityState) {
	d.mu.RLock()
	bridgeID, routed := d.entityBridge[state.EntityID]
	var handle matterrt.Handle
	if routed {
		handle = d.handles[bridgeID]
	}
	d.mu.RUnlock()

	if handle == nil {
		return
	}
	if err := handle.UpdateStates([]model.EntityState{state}); err != nil {
		d.logWarn("applying statestream update failed", "entity_id", state.EntityID, "error", err.Error())
		return
	}
	if d.history != nil {
		if err := d.history.Record(model.DeviceStateRecord{
			EntityID:   state.EntityID,
			BridgeID:   bridgeID,
			Reachable:  true,
			OnOff:      state.On,
			RecordedAt: time.Now(),
		}); err != nil {
			d.logWarn("recording state history failed", "entity_id", state.EntityID, "error", err.Error())
		}
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}
