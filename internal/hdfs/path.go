package hdfs

import (
	"path"
	"strings"
)

// NormalizePath turns a fully-qualified URI into the filesystem-relative path
// the client accepts by stripping a leading namenode address.
//
// The match is purely textual: scheme casing and trailing slashes must agree
// exactly with the configured fs.defaultFS, otherwise path is returned as-is.
func NormalizePath(p, namenode string) string {
	if namenode == "" {
		return p
	}
	if strings.HasPrefix(p, namenode) {
		return p[len(namenode):]
	}
	return p
}

// ParentDir returns the directory that must exist before p can be created.
func ParentDir(p string) string {
	return path.Dir(p)
}
