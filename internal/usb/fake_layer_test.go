package usb

import (
	"fmt"
	"sync"
)

// fakeRef is the DeviceRef used by the fake layer.
type fakeRef struct {
	identity Identity
	// badDescriptor makes identity extraction fail.
	badDescriptor bool
}

// fakeHandle is the Handle issued by the fake layer.
type fakeHandle struct {
	ref    *fakeRef
	closed bool
}

// fakeLayer is a scripted in-memory Layer implementation.
//
// Error injection fields queue a failure for the next matching call.
type fakeLayer struct {
	mu sync.Mutex

	// Present devices returned by Enumerate.
	present []*fakeRef

	// Subscription state. When notify is false, Subscribe reports
	// ErrNotificationsUnsupported.
	notify     bool
	events     Events
	subscribed bool

	// Error injection.
	openErr      error
	setConfigErr error
	claimErr     error
	resetErr     error
	clearHaltErr error
	enumerateErr error

	// Call accounting.
	opens     int
	closes    int
	releases  []int
	resets    int
	clears    []int
	setConfig []int
	claims    []int
}

func newFakeLayer(notify bool) *fakeLayer {
	return &fakeLayer{notify: notify}
}

func ref(vendor, product uint16) *fakeRef {
	return &fakeRef{identity: Identity{Vendor: vendor, Product: product}}
}

// arrive delivers an arrival notification as the layer's own goroutine
// would. Tests call it synchronously; the bridge must not care.
func (l *fakeLayer) arrive(r *fakeRef) {
	l.mu.Lock()
	events := l.events
	l.mu.Unlock()
	if events != nil {
		events.DeviceArrived(r)
	}
}

func (l *fakeLayer) leave(r *fakeRef) {
	l.mu.Lock()
	events := l.events
	l.mu.Unlock()
	if events != nil {
		events.DeviceLeft(r)
	}
}

func (l *fakeLayer) Identity(ref DeviceRef) (Identity, error) {
	r, ok := ref.(*fakeRef)
	if !ok || r.badDescriptor {
		return Identity{}, ErrIdentityUnavailable
	}
	return r.identity, nil
}

func (l *fakeLayer) Open(ref DeviceRef) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opens++
	if l.openErr != nil {
		err := l.openErr
		l.openErr = nil
		return nil, err
	}
	return &fakeHandle{ref: ref.(*fakeRef)}, nil
}

func (l *fakeLayer) Close(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	if fh, ok := h.(*fakeHandle); ok {
		fh.closed = true
	}
}

func (l *fakeLayer) SetConfiguration(_ Handle, config int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setConfig = append(l.setConfig, config)
	if l.setConfigErr != nil {
		err := l.setConfigErr
		l.setConfigErr = nil
		return err
	}
	return nil
}

func (l *fakeLayer) ClaimInterface(_ Handle, number int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.claims = append(l.claims, number)
	if l.claimErr != nil {
		err := l.claimErr
		l.claimErr = nil
		return err
	}
	return nil
}

func (l *fakeLayer) ReleaseInterface(_ Handle, number int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases = append(l.releases, number)
}

func (l *fakeLayer) ResetPort(_ Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
	if l.resetErr != nil {
		err := l.resetErr
		l.resetErr = nil
		return err
	}
	return nil
}

func (l *fakeLayer) ClearHalt(_ Handle, endpoint int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clears = append(l.clears, endpoint)
	if l.clearHaltErr != nil {
		err := l.clearHaltErr
		l.clearHaltErr = nil
		return err
	}
	return nil
}

func (l *fakeLayer) Enumerate() ([]DeviceRef, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.enumerateErr != nil {
		return nil, l.enumerateErr
	}
	refs := make([]DeviceRef, 0, len(l.present))
	for _, r := range l.present {
		refs = append(refs, r)
	}
	return refs, nil
}

func (l *fakeLayer) Subscribe(events Events) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.notify {
		return ErrNotificationsUnsupported
	}
	if l.subscribed {
		return fmt.Errorf("already subscribed")
	}
	l.events = events
	l.subscribed = true
	return nil
}

func (l *fakeLayer) Unsubscribe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.subscribed = false
}

// counters returns a copy of the call accounting under the lock.
func (l *fakeLayer) counters() (opens, closes, resets int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opens, l.closes, l.resets
}
