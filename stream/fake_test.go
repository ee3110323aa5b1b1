package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/thecheetahcat/sockstream/transport"
)

// frame is one scripted listen-loop event: a payload or a read failure.
type frame struct {
	data []byte
	err  error
}

var errFakeClosed = errors.New("fake transport closed")

// fakeTransport plays back a scripted sequence of frames. When the script
// runs out, reads block until Close.
type fakeTransport struct {
	connectErr error

	mu     sync.Mutex
	open   bool
	writes [][]byte

	frames    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeTransport(frames ...frame) *fakeTransport {
	ft := &fakeTransport{
		frames: make(chan frame, len(frames)+1),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		ft.frames <- f
	}
	return ft
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case fr := <-f.frames:
		if fr.err != nil {
			f.mu.Lock()
			f.open = false
			f.mu.Unlock()
			return nil, fr.err
		}
		return fr.data, nil
	case <-f.closed:
		return nil, errFakeClosed
	}
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return transport.ErrNotConnected
	}
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeTransport) sentMessages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

// fakeFactory hands out scripted transports, one per session, then idle
// ones that block forever. It records whether a new transport was ever
// requested while a previous one was still open.
type fakeFactory struct {
	mu         sync.Mutex
	script     []*fakeTransport
	made       []*fakeTransport
	overlapped bool
}

func newFakeFactory(script ...*fakeTransport) *fakeFactory {
	return &fakeFactory{script: script}
}

func (f *fakeFactory) factory() transport.Factory {
	return func() transport.Transport {
		f.mu.Lock()
		defer f.mu.Unlock()

		for _, prev := range f.made {
			if prev.IsOpen() {
				f.overlapped = true
			}
		}

		var ft *fakeTransport
		if len(f.made) < len(f.script) {
			ft = f.script[len(f.made)]
		} else {
			ft = newFakeTransport()
		}
		f.made = append(f.made, ft)
		return ft
	}
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.made)
}

func (f *fakeFactory) transports() []*fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeTransport, len(f.made))
	copy(out, f.made)
	return out
}

func (f *fakeFactory) sawOverlap() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.overlapped
}
