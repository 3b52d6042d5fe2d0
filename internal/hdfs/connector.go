package hdfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/colinmarc/hdfs/v2"

	perrors "github.com/objectfs/hdfswriter/pkg/errors"
)

const (
	defaultNamenodePort   = "8020"
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 30 * time.Second

	namenodePrincipalKey = "dfs.namenode.kerberos.principal"
	defaultNamenodeSPN   = "nn/_HOST"
)

// ClientDialer connects to HDFS through github.com/colinmarc/hdfs/v2.
type ClientDialer struct {
	connectTimeout time.Duration
	krb5Conf       string
	login          KerberosLogin
	logger         *slog.Logger
}

// DialerOption configures a ClientDialer.
type DialerOption func(*ClientDialer)

// WithConnectTimeout bounds each TCP dial to the namenode and datanodes.
func WithConnectTimeout(d time.Duration) DialerOption {
	return func(c *ClientDialer) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithKrb5Conf sets the krb5.conf used for the ticket step.
func WithKrb5Conf(path string) DialerOption {
	return func(c *ClientDialer) {
		if path != "" {
			c.krb5Conf = path
		}
	}
}

// WithKerberosLogin replaces the ticket step.
func WithKerberosLogin(login KerberosLogin) DialerOption {
	return func(c *ClientDialer) {
		if login != nil {
			c.login = login
		}
	}
}

// WithDialerLogger sets the logger used for connection diagnostics.
func WithDialerLogger(logger *slog.Logger) DialerOption {
	return func(c *ClientDialer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewDialer returns the default Dialer.
func NewDialer(opts ...DialerOption) *ClientDialer {
	krb5Conf := os.Getenv("KRB5_CONFIG")
	if krb5Conf == "" {
		krb5Conf = defaultKrb5Conf
	}
	d := &ClientDialer{
		connectTimeout: defaultConnectTimeout,
		krb5Conf:       krb5Conf,
		login:          KeytabLogin,
		logger:         slog.Default().With("component", "hdfs-dialer"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect performs the optional Kerberos ticket step and opens a session.
// It never retries.
func (d *ClientDialer) Connect(ctx context.Context, params ConnectionParameters) (Client, error) {
	if params.NamenodeAddress == "" {
		return nil, perrors.NewError(perrors.ErrCodeMissingConfig, "namenode address is empty").
			WithComponent("hdfs-dialer").
			WithOperation("connect")
	}
	if err := ctx.Err(); err != nil {
		return nil, connectError(params.NamenodeAddress, err)
	}

	options, err := d.clientOptions(params)
	if err != nil {
		return nil, err
	}

	if params.NeedsKerberos() {
		if params.KerberosPrincipal == "" || params.KerberosKeytab == "" {
			return nil, perrors.Newf(perrors.ErrCodeCredentialsMissing,
				"kerberos needs both %s and %s. namenode address: %s",
				KerberosPrincipalKey, KerberosKeytabKey, params.NamenodeAddress).
				WithComponent("hdfs-dialer").
				WithOperation("kinit")
		}
		d.logger.Debug("obtaining kerberos ticket",
			"principal", params.KerberosPrincipal,
			"keytab", params.KerberosKeytab)
		krbClient, err := d.login(params.KerberosPrincipal, params.KerberosKeytab, d.krb5Conf)
		if err != nil {
			return nil, perrors.Newf(perrors.ErrCodeAuthenticationFailed,
				"kerberos login failed. namenode address: %s, principal: %s, error: %v",
				params.NamenodeAddress, params.KerberosPrincipal, err).
				WithComponent("hdfs-dialer").
				WithOperation("kinit").
				WithCause(err)
		}
		options.KerberosClient = krbClient
	}

	client, err := hdfs.NewClient(options)
	if err != nil {
		return nil, connectError(params.NamenodeAddress, err)
	}
	return &clientAdapter{client: client}, nil
}

func connectError(namenode string, err error) error {
	return perrors.Newf(perrors.ErrCodeConnectionFailed,
		"connect to hdfs failed. namenode address: %s, error: %v", namenode, err).
		WithComponent("hdfs-dialer").
		WithOperation("connect").
		WithContext("namenode", namenode).
		WithCause(err)
}

// clientOptions translates params into library options without touching the network.
func (d *ClientDialer) clientOptions(params ConnectionParameters) (hdfs.ClientOptions, error) {
	conf := params.HadoopConf()
	options := hdfs.ClientOptionsFromConf(conf)

	// HA nameservices resolve through dfs.namenode.rpc-address.* in the
	// pass-through config; otherwise dial the hosts named in fs.defaultFS.
	if len(options.Addresses) == 0 {
		options.Addresses = NamenodeAddresses(params.NamenodeAddress)
	}
	if len(options.Addresses) == 0 {
		return options, perrors.Newf(perrors.ErrCodeInvalidConfig,
			"no namenode host in %q", params.NamenodeAddress).
			WithComponent("hdfs-dialer").
			WithOperation("connect")
	}

	if params.NeedsKerberos() {
		if options.KerberosServicePrincipleName == "" {
			spn := defaultNamenodeSPN
			if v, ok := params.Lookup(namenodePrincipalKey); ok && v != "" {
				spn, _, _ = strings.Cut(v, "@")
			}
			options.KerberosServicePrincipleName = spn
		}
	} else {
		options.KerberosServicePrincipleName = ""
	}

	options.User = params.User
	if options.User == "" && !params.NeedsKerberos() {
		options.User = defaultUser()
	}

	dialer := &net.Dialer{Timeout: d.connectTimeout, KeepAlive: defaultKeepAlive}
	options.NamenodeDialFunc = dialer.DialContext
	options.DatanodeDialFunc = dialer.DialContext

	return options, nil
}

// NamenodeAddresses extracts host:port pairs from an fs.defaultFS value such
// as "hdfs://nn1:8020,nn2:8020/". A missing port defaults to 8020.
func NamenodeAddresses(namenode string) []string {
	rest := namenode
	if _, after, ok := strings.Cut(rest, "://"); ok {
		rest = after
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}

	var addrs []string
	for _, host := range strings.Split(rest, ",") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(host); err != nil {
			host = net.JoinHostPort(strings.Trim(host, "[]"), defaultNamenodePort)
		}
		addrs = append(addrs, host)
	}
	return addrs
}

func defaultUser() string {
	if v := os.Getenv("HADOOP_USER_NAME"); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

type clientAdapter struct {
	client *hdfs.Client
}

func (c *clientAdapter) Exists(p string) (bool, error) {
	_, err := c.client.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (c *clientAdapter) MkdirAll(p string, perm os.FileMode) error {
	return c.client.MkdirAll(p, perm)
}

func (c *clientAdapter) Create(p string) (File, error) {
	fw, err := c.client.Create(p)
	if err != nil {
		return nil, err
	}
	if fw == nil {
		return nil, fmt.Errorf("client returned no file handle for %s", p)
	}
	return fw, nil
}

func (c *clientAdapter) Close() error {
	return c.client.Close()
}
