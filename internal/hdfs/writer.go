package hdfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	perrors "github.com/objectfs/hdfswriter/pkg/errors"
)

const (
	componentName  = "hdfs-writer"
	defaultDirPerm = os.FileMode(0755)
)

// Recorder receives per-operation outcomes. internal/metrics.Collector
// satisfies it.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, size int64, err error)
	UpdateOpenWriters(delta int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, time.Duration, int64, error) {}
func (nopRecorder) UpdateOpenWriters(int)                               {}

// Option configures a Writer.
type Option func(*Writer)

// WithDialer replaces the client dialer.
func WithDialer(d Dialer) Option {
	return func(w *Writer) {
		if d != nil {
			w.dialer = d
		}
	}
}

// WithLogger sets the base logger. Writer fields are added to it.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithMetrics sets the operation recorder.
func WithMetrics(r Recorder) Option {
	return func(w *Writer) {
		if r != nil {
			w.metrics = r
		}
	}
}

// WithBackendIdentity sets the host label used in error messages.
func WithBackendIdentity(fn func() string) Option {
	return func(w *Writer) {
		if fn != nil {
			w.backend = fn
		}
	}
}

// WithDirPerm sets the permission used when creating the parent directory.
func WithDirPerm(perm os.FileMode) Option {
	return func(w *Writer) {
		if perm != 0 {
			w.dirPerm = perm
		}
	}
}

// Writer streams bytes into a single new HDFS file.
//
// The lifecycle is NewWriter, Open, any number of Write calls, Close. A
// Writer is not safe for concurrent use and cannot be reopened. A Writer
// that is garbage collected without Close releases its resources through a
// finalizer, but callers should always Close explicitly.
type Writer struct {
	id       string
	path     string
	namenode string
	params   ConnectionParameters

	dialer  Dialer
	logger  *slog.Logger
	metrics Recorder
	backend func() string
	dirPerm os.FileMode

	sess    *session
	opened  bool
	closed  bool
	written int64
	digest  *xxhash.Digest
}

// NewWriter parses props and prepares a writer for path. Nothing is
// contacted until Open. props is read, never modified.
func NewWriter(props map[string]string, path string, opts ...Option) *Writer {
	params := ParseProperties(props)

	w := &Writer{
		id:       uuid.NewString(),
		path:     path,
		namenode: params.NamenodeAddress,
		params:   params,
		logger:   slog.Default(),
		metrics:  nopRecorder{},
		backend:  LocalBackendIdentity,
		dirPerm:  defaultDirPerm,
		digest:   xxhash.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.dialer == nil {
		w.dialer = NewDialer(WithDialerLogger(w.logger))
	}
	w.logger = w.logger.With("component", componentName, "writer_id", w.id)

	runtime.SetFinalizer(w, (*Writer).finalize)
	return w
}

// finalize releases a writer that was dropped without Close. Close clears
// the finalizer, so this only runs for leaked writers.
func (w *Writer) finalize() {
	w.logger.Warn("hdfs writer garbage collected without Close",
		"namenode", w.namenode, "path", w.path, "opened", w.opened)
	_ = w.Close()
}

// ID returns the identifier attached to this writer's logs and errors.
func (w *Writer) ID() string { return w.id }

// Path returns the target path, normalized once Open has run.
func (w *Writer) Path() string { return w.path }

// NamenodeAddress returns the configured fs.defaultFS.
func (w *Writer) NamenodeAddress() string { return w.namenode }

// Params returns the parsed connection parameters.
func (w *Writer) Params() ConnectionParameters { return w.params }

// BytesWritten returns the number of bytes accepted by the client so far.
func (w *Writer) BytesWritten() int64 { return w.written }

// Checksum returns the xxhash64 of all accepted bytes as 16 hex digits.
func (w *Writer) Checksum() string {
	return fmt.Sprintf("%016x", w.digest.Sum64())
}

// Open connects, checks that the target does not exist, creates the parent
// directory if needed and opens the file for writing. On failure the
// writer keeps whatever connection it acquired until Close.
func (w *Writer) Open(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		w.metrics.RecordOperation("open", time.Since(start), 0, err)
	}()

	if w.closed {
		return w.fail("open", w.stateError("open", "writer is closed"))
	}
	if w.opened {
		return w.fail("open", w.stateError("open", "writer already opened"))
	}
	w.opened = true

	if w.namenode == "" {
		return w.fail("open", perrors.Newf(perrors.ErrCodeMissingConfig,
			"hdfs properties is incorrect. %s is not set, path: %s", FSKey, w.path).
			WithComponent(componentName).
			WithOperation("open").
			WithRequestID(w.id).
			WithContext("missing", FSKey))
	}

	target := w.path
	w.path = NormalizePath(w.path, w.namenode)
	if w.path == "" {
		return w.fail("open", perrors.Newf(perrors.ErrCodePathInvalid,
			"invalid path. no file name after namenode: %s, path: %s", w.namenode, target).
			WithComponent(componentName).
			WithOperation("open").
			WithRequestID(w.id).
			WithContext("path", target))
	}

	client, err := w.dialer.Connect(ctx, w.params)
	if err != nil {
		return w.fail("connect", w.wrap(err, "connect"))
	}
	if client == nil {
		return w.fail("connect", perrors.Newf(perrors.ErrCodeConnectionFailed,
			"HDFS writer open without client. namenode address: %s", w.namenode).
			WithComponent(componentName).
			WithOperation("connect").
			WithRequestID(w.id))
	}
	w.sess = &session{client: client}

	exists, err := client.Exists(w.path)
	if err != nil {
		return w.fail("open", w.ioError(perrors.ErrCodeStorageStat, "open", "check path failed.", w.path, err))
	}
	if exists {
		return w.fail("open", perrors.Newf(perrors.ErrCodeFileExists, "%s already exists.", w.path).
			WithComponent(componentName).
			WithOperation("open").
			WithRequestID(w.id))
	}

	dir := ParentDir(w.path)
	dirExists, err := client.Exists(dir)
	if err != nil {
		return w.fail("open", w.ioError(perrors.ErrCodeStorageStat, "open", "check dir failed.", dir, err))
	}
	if !dirExists {
		w.logger.Info("hdfs dir doesn't exist, create it", "dir", dir, "namenode", w.namenode)
		if err := client.MkdirAll(dir, w.dirPerm); err != nil {
			return w.fail("open", w.ioError(perrors.ErrCodeDirectoryCreate, "open", "create dir failed.", dir, err))
		}
	}

	file, err := client.Create(w.path)
	if err == nil && file == nil {
		err = fmt.Errorf("client returned no file handle")
	}
	if err != nil {
		return w.fail("open", w.ioError(perrors.ErrCodeFileOpen, "open", "open file failed.", w.path, err))
	}
	w.sess.file = file
	w.metrics.UpdateOpenWriters(1)

	w.logger.Info("open file.", "namenode", w.namenode, "path", w.path)
	return nil
}

// Write hands p to the client in a single call and returns how many bytes it
// accepted. Short writes are returned as-is; looping is the caller's job.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if w.closed || !w.sess.hasFile() {
		return 0, w.fail("write", w.stateError("write", "writer is not open"))
	}

	start := time.Now()
	n, err := w.sess.file.Write(p)
	if n < 0 {
		n = 0
	}
	if n > 0 {
		w.written += int64(n)
		_, _ = w.digest.Write(p[:n])
	}
	if err != nil {
		err = w.fail("write", w.ioError(perrors.ErrCodeStorageWrite, "write", "write file failed.", w.path, err))
	}
	w.metrics.RecordOperation("write", time.Since(start), int64(n), err)
	return n, err
}

// Close flushes and closes the file and disconnects. Only the first call
// does any work. Resources are released even when the flush fails; an error
// from Close means the data may not be durable, not that anything leaked.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)

	if w.sess == nil {
		return nil
	}

	start := time.Now()
	res := w.sess.release()
	w.sess = nil

	if res.disconnectErr != nil {
		w.logger.Warn("disconnect from hdfs failed",
			"namenode", w.namenode, "path", w.path, "err", res.disconnectErr)
	}
	if !res.hadFile {
		return nil
	}
	w.metrics.UpdateOpenWriters(-1)

	var err error
	switch {
	case res.flushErr != nil:
		if res.fileCloseErr != nil {
			w.logger.Warn("close hdfs file after failed flush",
				"namenode", w.namenode, "path", w.path, "err", res.fileCloseErr)
		}
		err = w.fail("close", w.ioError(perrors.ErrCodeStorageFlush, "close", "failed to flush hdfs file.", w.path, res.flushErr))
	case res.fileCloseErr != nil:
		err = w.fail("close", w.ioError(perrors.ErrCodeFileClose, "close", "failed to close hdfs file.", w.path, res.fileCloseErr))
	}
	w.metrics.RecordOperation("close", time.Since(start), w.written, err)
	return err
}

// ioError builds the diagnostic message shared by every client failure.
func (w *Writer) ioError(code perrors.ErrorCode, op, what, p string, cause error) *perrors.HDFSError {
	return perrors.Newf(code, "%s (BE: %s) namenode: %s path: %s, err: %v",
		what, w.backend(), w.namenode, p, cause).
		WithComponent(componentName).
		WithOperation(op).
		WithRequestID(w.id).
		WithContext("namenode", w.namenode).
		WithContext("path", p).
		WithCause(cause)
}

func (w *Writer) stateError(op, msg string) *perrors.HDFSError {
	return perrors.NewError(perrors.ErrCodeInvalidState, msg).
		WithComponent(componentName).
		WithOperation(op).
		WithRequestID(w.id).
		WithContext("path", w.path)
}

// wrap tags a dialer error with this writer's identity, keeping its code.
func (w *Writer) wrap(err error, op string) error {
	var e *perrors.HDFSError
	if errors.As(err, &e) {
		if e.RequestID == "" {
			e.RequestID = w.id
		}
		return err
	}
	return perrors.Newf(perrors.ErrCodeConnectionFailed,
		"connect to hdfs failed. namenode address: %s, error: %v", w.namenode, err).
		WithComponent(componentName).
		WithOperation(op).
		WithRequestID(w.id).
		WithCause(err)
}

// fail logs err at warning level and returns it.
func (w *Writer) fail(op string, err error) error {
	w.logger.Warn(err.Error(),
		"op", op,
		"namenode", w.namenode,
		"path", w.path,
		"backend", w.backend(),
		"code", string(perrors.GetCode(err)))
	return err
}
