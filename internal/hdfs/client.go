package hdfs

import (
	"context"
	"os"
)

// Dialer establishes a client session from connection parameters.
type Dialer interface {
	Connect(ctx context.Context, params ConnectionParameters) (Client, error)
}

// Client is the subset of the remote filesystem client the writer needs.
// Implementations are owned by exactly one Writer.
type Client interface {
	// Exists reports whether p names an existing file or directory.
	Exists(p string) (bool, error)
	// MkdirAll creates p and any missing parents.
	MkdirAll(p string, perm os.FileMode) error
	// Create opens p for write-only access as a new file.
	Create(p string) (File, error)
	// Close disconnects the session.
	Close() error
}

// File is a remote file opened for writing.
type File interface {
	Write(b []byte) (int, error)
	Flush() error
	Close() error
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, params ConnectionParameters) (Client, error)

// Connect calls f(ctx, params).
func (f DialerFunc) Connect(ctx context.Context, params ConnectionParameters) (Client, error) {
	return f(ctx, params)
}
