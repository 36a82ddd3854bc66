package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

// testPasscode and testDiscriminator are the fixed pairing parameters
// newTestServer wires in, so pairing tests can assert against a known
// matterrt.PairingInfo(id, testPasscode, testDiscriminator) result.
const (
	testPasscode      = 20202021
	testDiscriminator = 3840
)

// testDeps bundles the fakes wired into a test Server, so individual
// tests can reach into them after building the router.
type testDeps struct {
	store    *fakeStore
	queue    *fakeQueue
	upstream *fakeUpstream
	history  *fakeHistory
}

// newTestServer builds a Server backed entirely by fakes.
func newTestServer(t *testing.T) (*Server, http.Handler, *testDeps) {
	t.Helper()

	deps := &testDeps{
		store:    newFakeStore(),
		queue:    &fakeQueue{},
		upstream: &fakeUpstream{},
	}

	srv, err := New(Deps{
		Port:          0,
		Logger:        fakeLogger{},
		Store:         deps.store,
		Queue:         deps.queue,
		Upstream:      deps.upstream,
		Version:       "test",
		Passcode:      testPasscode,
		Discriminator: testDiscriminator,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	srv.hub = NewHub(fakeLogger{})

	return srv, srv.buildRouter(), deps
}

// fakeLogger is a no-op Logger for tests.
type fakeLogger struct{}

func (fakeLogger) Info(string, ...any)  {}
func (fakeLogger) Error(string, ...any) {}
func (fakeLogger) Warn(string, ...any)  {}
func (fakeLogger) Debug(string, ...any) {}

// fakeStore is an in-memory Store fake.
type fakeStore struct {
	mu sync.Mutex

	bridges map[string]model.BridgeConfig
	runtime map[string]model.BridgeRuntimeState
	devices map[string][]model.BridgeDevice
	ops     []model.BridgeOperation

	getBridgeErr    error
	upsertBridgeErr error
	listBridgesErr  error
	listOpsErr      error
	listDevicesErr  error
	listRuntimeErr  error
	getRuntimeErr   error
	noRuntimeState  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		bridges: make(map[string]model.BridgeConfig),
		runtime: make(map[string]model.BridgeRuntimeState),
		devices: make(map[string][]model.BridgeDevice),
	}
}

func (f *fakeStore) ListBridges() ([]model.BridgeConfig, error) {
	if f.listBridgesErr != nil {
		return nil, f.listBridgesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.BridgeConfig, 0, len(f.bridges))
	for _, b := range f.bridges {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetBridge(id string) (model.BridgeConfig, error) {
	if f.getBridgeErr != nil {
		return model.BridgeConfig{}, f.getBridgeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bridges[id]
	if !ok {
		return model.BridgeConfig{}, model.ErrBridgeNotFound
	}
	return b, nil
}

func (f *fakeStore) UpsertBridge(bridge model.BridgeConfig) error {
	if f.upsertBridgeErr != nil {
		return f.upsertBridgeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bridges[bridge.ID] = bridge
	return nil
}

func (f *fakeStore) ListOperations() ([]model.BridgeOperation, error) {
	if f.listOpsErr != nil {
		return nil, f.listOpsErr
	}
	return f.ops, nil
}

func (f *fakeStore) ListBridgeDevices(bridgeID string) ([]model.BridgeDevice, error) {
	if f.listDevicesErr != nil {
		return nil, f.listDevicesErr
	}
	return f.devices[bridgeID], nil
}

func (f *fakeStore) ListBridgeRuntime() ([]model.BridgeRuntimeEntry, error) {
	if f.listRuntimeErr != nil {
		return nil, f.listRuntimeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.BridgeRuntimeEntry, 0, len(f.runtime))
	for id, state := range f.runtime {
		out = append(out, model.BridgeRuntimeEntry{BridgeID: id, State: state})
	}
	return out, nil
}

func (f *fakeStore) GetBridgeRuntime(bridgeID string) (model.BridgeRuntimeState, bool, error) {
	if f.getRuntimeErr != nil {
		return model.BridgeRuntimeState{}, false, f.getRuntimeErr
	}
	if f.noRuntimeState {
		return model.BridgeRuntimeState{}, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.runtime[bridgeID]
	return state, ok, nil
}

// fakeQueue is a Queue fake that records enqueued operations.
type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []model.BridgeOperation
	enqueueErr error
}

func (f *fakeQueue) Enqueue(bridgeID string, opType model.OperationType) (*model.BridgeOperation, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	op := model.BridgeOperation{
		OperationID: "op-" + bridgeID + "-" + string(opType),
		BridgeID:    bridgeID,
		OpType:      opType,
		Status:      model.StatusQueued,
	}
	f.enqueued = append(f.enqueued, op)
	return &op, nil
}

// fakeUpstream is an Upstream fake that records CallService invocations.
type fakeUpstream struct {
	mu    sync.Mutex
	calls []upstreamCall
	err   error
	done  chan struct{}
}

type upstreamCall struct {
	domain, service, entityID string
	extra                     map[string]any
}

func (f *fakeUpstream) CallService(_ context.Context, domain, service, entityID string, extra map[string]any) error {
	f.mu.Lock()
	f.calls = append(f.calls, upstreamCall{domain, service, entityID, extra})
	f.mu.Unlock()
	if f.done != nil {
		close(f.done)
	}
	return f.err
}

// fakeHistory is a History fake.
type fakeHistory struct {
	records []model.DeviceStateRecord
	err     error
}

func (f *fakeHistory) History(_ context.Context, _, _ string, _ int) ([]model.DeviceStateRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

var errFakeStorage = errors.New("fake storage failure")
