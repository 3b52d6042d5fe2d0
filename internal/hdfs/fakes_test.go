package hdfs

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"
)

type fakeDialer struct {
	client     *fakeClient
	err        error
	calls      int
	lastParams ConnectionParameters
}

func (d *fakeDialer) Connect(_ context.Context, params ConnectionParameters) (Client, error) {
	d.calls++
	d.lastParams = params
	if d.err != nil {
		return nil, d.err
	}
	return d.client, nil
}

type fakeClient struct {
	existing  map[string]bool
	existsErr error
	mkdirErr  error
	createErr error
	closeErr  error

	file *fakeFile

	existsCalls []string
	mkdirCalls  []string
	createCalls []string
	closeCalls  int

	// released is closed on the first Close.
	released    chan struct{}
	releaseOnce sync.Once
}

func newFakeClient(existing ...string) *fakeClient {
	c := &fakeClient{
		existing: map[string]bool{},
		file:     &fakeFile{},
		released: make(chan struct{}),
	}
	for _, p := range existing {
		c.existing[p] = true
	}
	return c
}

func (c *fakeClient) Exists(p string) (bool, error) {
	c.existsCalls = append(c.existsCalls, p)
	if c.existsErr != nil {
		return false, c.existsErr
	}
	return c.existing[p], nil
}

func (c *fakeClient) MkdirAll(p string, _ os.FileMode) error {
	c.mkdirCalls = append(c.mkdirCalls, p)
	if c.mkdirErr != nil {
		return c.mkdirErr
	}
	c.existing[p] = true
	return nil
}

func (c *fakeClient) Create(p string) (File, error) {
	c.createCalls = append(c.createCalls, p)
	if c.createErr != nil {
		return nil, c.createErr
	}
	if c.file == nil {
		return nil, nil
	}
	return c.file, nil
}

func (c *fakeClient) Close() error {
	c.closeCalls++
	c.releaseOnce.Do(func() { close(c.released) })
	return c.closeErr
}

type fakeFile struct {
	// maxWrite caps bytes accepted per call when positive.
	maxWrite int
	writeErr error
	flushErr error
	closeErr error

	data       []byte
	writeCalls int
	flushCalls int
	closeCalls int
}

func (f *fakeFile) Write(b []byte) (int, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(b)
	if f.maxWrite > 0 && n > f.maxWrite {
		n = f.maxWrite
	}
	f.data = append(f.data, b[:n]...)
	return n, nil
}

func (f *fakeFile) Flush() error {
	f.flushCalls++
	return f.flushErr
}

func (f *fakeFile) Close() error {
	f.closeCalls++
	return f.closeErr
}

type recordedOp struct {
	operation string
	size      int64
	err       error
}

type fakeRecorder struct {
	ops         []recordedOp
	openWriters int
}

func (r *fakeRecorder) RecordOperation(operation string, _ time.Duration, size int64, err error) {
	r.ops = append(r.ops, recordedOp{operation: operation, size: size, err: err})
}

func (r *fakeRecorder) UpdateOpenWriters(delta int) {
	r.openWriters += delta
}

// lockedBuffer is a log sink that may be written from a finalizer goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
