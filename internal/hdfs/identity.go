package hdfs

import "os"

// LocalBackendIdentity returns the host label embedded in diagnostics.
func LocalBackendIdentity() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
