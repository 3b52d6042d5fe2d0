package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/hdfswriter/internal/hdfs"
	perrors "github.com/objectfs/hdfswriter/pkg/errors"
)

type memFile struct {
	buf    *bytes.Buffer
	closed bool
}

func (f *memFile) Write(b []byte) (int, error) { return f.buf.Write(b) }
func (f *memFile) Flush() error                { return nil }
func (f *memFile) Close() error                { f.closed = true; return nil }

type memClient struct {
	files map[string]*bytes.Buffer
	dirs  map[string]bool
}

func newMemClient() *memClient {
	return &memClient{files: map[string]*bytes.Buffer{}, dirs: map[string]bool{"/": true}}
}

func (c *memClient) Exists(p string) (bool, error) {
	_, ok := c.files[p]
	return ok || c.dirs[p], nil
}

func (c *memClient) MkdirAll(p string, _ os.FileMode) error {
	c.dirs[p] = true
	return nil
}

func (c *memClient) Create(p string) (hdfs.File, error) {
	buf := &bytes.Buffer{}
	c.files[p] = buf
	return &memFile{buf: buf}, nil
}

func (c *memClient) Close() error { return nil }

func memDialer(c *memClient) hdfs.Dialer {
	return hdfs.DialerFunc(func(context.Context, hdfs.ConnectionParameters) (hdfs.Client, error) {
		return c, nil
	})
}

func runPutCmd(t *testing.T, opts *putOptions, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newPutCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseDefines(t *testing.T) {
	got, err := parseDefines([]string{"dfs.replication=2", "a=b=c", "empty=", "dfs.replication=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"dfs.replication": "3", "a": "b=c", "empty": ""}, got)

	_, err = parseDefines([]string{"novalue"})
	assert.ErrorContains(t, err, "want key=value")

	_, err = parseDefines([]string{"=x"})
	assert.Error(t, err)
}

func TestPut_FromStdin(t *testing.T) {
	client := newMemClient()
	opts := &putOptions{dialer: memDialer(client)}

	out, err := runPutCmd(t, opts, "hello hdfs",
		"--namenode", "hdfs://nn:8020", "--user", "etl", "--log-level", "ERROR",
		"-D", "dfs.replication=2",
		"-", "hdfs://nn:8020/tmp/out.dat")
	require.NoError(t, err)

	require.Contains(t, client.files, "/tmp/out.dat")
	assert.Equal(t, "hello hdfs", client.files["/tmp/out.dat"].String())
	assert.True(t, client.dirs["/tmp"])
	assert.Contains(t, out, "/tmp/out.dat\t10 bytes\txxhash64:")
}

func TestPut_FromFileWithConfig(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte("z"), 5000), 0600))

	cfgFile := filepath.Join(dir, "hdfs-put.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
global:
  log_level: ERROR
hdfs:
  namenode: hdfs://nn:8020
  user: etl
transfer:
  chunk_size: 1KB
`), 0600))

	client := newMemClient()
	client.dirs["/data"] = true
	out, err := runPutCmd(t, &putOptions{dialer: memDialer(client)}, "",
		"--config", cfgFile, src, "/data/payload.bin")
	require.NoError(t, err)
	assert.Equal(t, 5000, client.files["/data/payload.bin"].Len())
	assert.Contains(t, out, "5000 bytes")
}

func TestPut_TargetExists(t *testing.T) {
	client := newMemClient()
	client.files["/tmp/out.dat"] = bytes.NewBufferString("old")

	_, err := runPutCmd(t, &putOptions{dialer: memDialer(client)}, "new",
		"--namenode", "hdfs://nn:8020", "--log-level", "ERROR", "-", "/tmp/out.dat")
	require.Error(t, err)
	assert.True(t, perrors.IsAlreadyExists(err))
	assert.Equal(t, "old", client.files["/tmp/out.dat"].String())
}

func TestPut_InvalidFlags(t *testing.T) {
	client := newMemClient()

	_, err := runPutCmd(t, &putOptions{dialer: memDialer(client)}, "",
		"--namenode", "hdfs://nn:8020", "--rate-limit", "fast", "-", "/tmp/out.dat")
	assert.ErrorContains(t, err, "invalid configuration")
	assert.True(t, perrors.IsConfigurationError(err))

	_, err = runPutCmd(t, &putOptions{dialer: memDialer(client)}, "",
		"--config", filepath.Join(t.TempDir(), "missing.yaml"), "-", "/tmp/out.dat")
	assert.Equal(t, perrors.ErrCodeConfigLoad, perrors.GetCode(err))

	_, err = runPutCmd(t, &putOptions{dialer: memDialer(client)}, "",
		"-D", "broken", "-", "/tmp/out.dat")
	assert.ErrorContains(t, err, "want key=value")

	_, err = runPutCmd(t, &putOptions{dialer: memDialer(client)}, "", "only-one-arg")
	assert.Error(t, err)
	assert.Empty(t, client.files)
}

func TestPut_MissingSource(t *testing.T) {
	_, err := runPutCmd(t, &putOptions{dialer: memDialer(newMemClient())}, "",
		"--namenode", "hdfs://nn:8020", "--log-level", "ERROR",
		filepath.Join(t.TempDir(), "nope"), "/tmp/out.dat")
	assert.ErrorContains(t, err, "open source")
}

func TestOpenSource_RefusesTerminal(t *testing.T) {
	cmd := newPutCmd(&putOptions{})
	cmd.SetIn(os.Stdin)

	opts := &putOptions{isTerminal: func(int) bool { return true }}
	_, err := openSource(cmd, opts, "-")
	assert.ErrorContains(t, err, "refusing to read payload from a terminal")

	opts.isTerminal = func(int) bool { return false }
	rc, err := openSource(cmd, opts, "-")
	require.NoError(t, err)
	assert.NoError(t, rc.Close())
}

func TestVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Contains(t, out.String(), "hdfs-put dev")
	assert.Contains(t, out.String(), "go:")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "hdfs-put.yaml")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "init", path})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "krb5_conf: /etc/krb5.conf")
	assert.Contains(t, out.String(), "wrote "+path)
}
