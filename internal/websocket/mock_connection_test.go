package websocket

import (
	"errors"
	"sync"
	"time"
)

var errConnClosed = errors.New("connection closed")

type writtenMessage struct {
	Type int
	Data []byte
}

// fakeConnection is an in-memory Connection. ReadMessage blocks until an
// inbound frame is queued or the connection is closed.
type fakeConnection struct {
	mu      sync.Mutex
	written []writtenMessage
	closed  bool

	inbound chan []byte
	done    chan struct{}
	once    sync.Once

	readLimit int64
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{
		inbound: make(chan []byte, 8),
		done:    make(chan struct{}),
	}
}

func (f *fakeConnection) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errConnClosed
	}
	f.written = append(f.written, writtenMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return 1, msg, nil
	case <-f.done:
		return 0, nil, errConnClosed
	}
}

func (f *fakeConnection) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

func (f *fakeConnection) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConnection) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConnection) SetPongHandler(func(string) error) {}
func (f *fakeConnection) RemoteAddr() string                { return "127.0.0.1:50000" }

func (f *fakeConnection) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeConnection) limit() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLimit
}

func (f *fakeConnection) messages() []writtenMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]writtenMessage, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeConnection) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
