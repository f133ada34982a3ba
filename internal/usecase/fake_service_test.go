package usecase

import (
	"context"
	"sync"

	"storage-visual/internal/domain"
)

// fakeService is an in-memory StorageService whose status and failures are
// scripted per test. It counts calls so tests can assert that a quiet deny
// never reaches storage.
type fakeService struct {
	mu        sync.Mutex
	status    domain.PrivilegeStatus
	statusErr error
	getErr    error
	setErr    error
	removeErr error
	data      map[string]string

	statusCalls int
	getCalls    int
	setCalls    int
	removeCalls int
}

func newFakeService() *fakeService {
	return &fakeService{status: domain.PrivilegeAllowed, data: make(map[string]string)}
}

func (f *fakeService) Status(context.Context) (domain.PrivilegeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.status, f.statusErr
}

func (f *fakeService) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", domain.NewSubSystemError("kv", "fake.Get", domain.ErrNotFound, key)
	}
	return v, nil
}

func (f *fakeService) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeService) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.data, key)
	return nil
}

func (f *fakeService) setStatus(s domain.PrivilegeStatus) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

func (f *fakeService) storageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls + f.setCalls + f.removeCalls
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBus) Publish(_ context.Context, e domain.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() { return func() {} }
func (b *recordingBus) SubscribeAll(domain.EventHandler) func() { return func() {} }
func (b *recordingBus) Close() {}

func (b *recordingBus) ofType(t domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
