package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/hdfswriter/internal/hdfs"
	perrors "github.com/objectfs/hdfswriter/pkg/errors"
	"github.com/objectfs/hdfswriter/pkg/utils"
)

const componentName = "config"

// Configuration represents the complete application configuration
type Configuration struct {
	Global   GlobalConfig   `yaml:"global"`
	HDFS     HDFSConfig     `yaml:"hdfs"`
	Kerberos KerberosConfig `yaml:"kerberos"`
	Network  NetworkConfig  `yaml:"network"`
	Transfer TransferConfig `yaml:"transfer"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
}

// HDFSConfig names the cluster and any extra client properties.
type HDFSConfig struct {
	Namenode   string            `yaml:"namenode"`
	User       string            `yaml:"user"`
	Properties map[string]string `yaml:"properties"`
	DirPerm    string            `yaml:"dir_perm"`
}

// KerberosConfig represents keytab login settings
type KerberosConfig struct {
	Principal string `yaml:"principal"`
	Keytab    string `yaml:"keytab"`
	Krb5Conf  string `yaml:"krb5_conf"`
}

// NetworkConfig represents network configuration
type NetworkConfig struct {
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig represents timeout settings
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
}

// TransferConfig controls how payloads are streamed.
type TransferConfig struct {
	ChunkSize string `yaml:"chunk_size"`
	// RateLimit is bytes per second; empty means unlimited.
	RateLimit string `yaml:"rate_limit"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			LogFormat:   "text",
			LogFile:     "",
			MetricsPort: 0,
		},
		HDFS: HDFSConfig{
			Properties: map[string]string{},
			DirPerm:    "0755",
		},
		Kerberos: KerberosConfig{
			Krb5Conf: "/etc/krb5.conf",
		},
		Network: NetworkConfig{
			Timeouts: TimeoutConfig{
				Connect: 10 * time.Second,
			},
		},
		Transfer: TransferConfig{
			ChunkSize: "1MB",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadError(filename, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return loadError(filename, "failed to parse config file", err)
	}

	return nil
}

func loadError(filename, msg string, err error) error {
	return perrors.Newf(perrors.ErrCodeConfigLoad, "%s: %v", msg, err).
		WithComponent(componentName).
		WithOperation("load").
		WithContext("file", filename).
		WithCause(err)
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Global settings
	if val := os.Getenv("HDFSWRITER_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("HDFSWRITER_LOG_FORMAT"); val != "" {
		c.Global.LogFormat = val
	}
	if val := os.Getenv("HDFSWRITER_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("HDFSWRITER_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}

	// Cluster settings
	if val := os.Getenv("HDFSWRITER_NAMENODE"); val != "" {
		c.HDFS.Namenode = val
	}
	if val := os.Getenv("HDFSWRITER_USER"); val != "" {
		c.HDFS.User = val
	}
	if val := os.Getenv("HDFSWRITER_KERBEROS_PRINCIPAL"); val != "" {
		c.Kerberos.Principal = val
	}
	if val := os.Getenv("HDFSWRITER_KERBEROS_KEYTAB"); val != "" {
		c.Kerberos.Keytab = val
	}
	if val := os.Getenv("KRB5_CONFIG"); val != "" {
		c.Kerberos.Krb5Conf = val
	}
	if val := os.Getenv("HDFSWRITER_CONNECT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Network.Timeouts.Connect = d
		}
	}

	// Transfer settings
	if val := os.Getenv("HDFSWRITER_CHUNK_SIZE"); val != "" {
		c.Transfer.ChunkSize = val
	}
	if val := os.Getenv("HDFSWRITER_RATE_LIMIT"); val != "" {
		c.Transfer.RateLimit = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return validationError("invalid log_level: %s (must be one of: DEBUG, INFO, WARN, ERROR)", c.Global.LogLevel)
	}

	if _, err := utils.ParseLogFormat(c.Global.LogFormat); err != nil {
		return validationError("invalid log_format: %s (must be text or json)", c.Global.LogFormat)
	}

	if c.Global.MetricsPort < 0 || c.Global.MetricsPort > 65535 {
		return validationError("metrics_port out of range: %d", c.Global.MetricsPort)
	}

	if (c.Kerberos.Principal == "") != (c.Kerberos.Keytab == "") {
		return validationError("kerberos principal and keytab must be set together")
	}

	if _, err := c.DirMode(); err != nil {
		return err
	}

	if c.Network.Timeouts.Connect < 0 {
		return validationError("connect timeout cannot be negative")
	}

	chunk, err := c.ChunkSize()
	if err != nil {
		return err
	}
	if chunk <= 0 {
		return validationError("chunk_size must be greater than 0")
	}

	if _, err := c.RateLimit(); err != nil {
		return err
	}

	return nil
}

func validationError(format string, args ...interface{}) *perrors.HDFSError {
	return perrors.Newf(perrors.ErrCodeConfigValidation, format, args...).
		WithComponent(componentName).
		WithOperation("validate")
}

// DirMode parses hdfs.dir_perm as an octal permission. Empty means 0755.
func (c *Configuration) DirMode() (os.FileMode, error) {
	if c.HDFS.DirPerm == "" {
		return 0755, nil
	}
	perm, err := strconv.ParseUint(c.HDFS.DirPerm, 8, 32)
	if err != nil || perm > 0777 {
		return 0, validationError("invalid dir_perm: %s", c.HDFS.DirPerm)
	}
	return os.FileMode(perm), nil
}

// ChunkSize returns transfer.chunk_size in bytes.
func (c *Configuration) ChunkSize() (int, error) {
	if c.Transfer.ChunkSize == "" {
		return hdfs.DefaultChunkSize, nil
	}
	n, err := utils.ParseBytes(c.Transfer.ChunkSize)
	if err != nil {
		return 0, validationError("invalid chunk_size: %v", err).WithCause(err)
	}
	return int(n), nil
}

// RateLimit returns transfer.rate_limit in bytes per second, 0 when unset.
func (c *Configuration) RateLimit() (int64, error) {
	if c.Transfer.RateLimit == "" {
		return 0, nil
	}
	n, err := utils.ParseBytes(c.Transfer.RateLimit)
	if err != nil {
		return 0, validationError("invalid rate_limit: %v", err).WithCause(err)
	}
	return n, nil
}

// Properties builds the writer property map. Typed fields win over the same
// keys in hdfs.properties. The returned map is a fresh copy.
func (c *Configuration) Properties() map[string]string {
	props := make(map[string]string, len(c.HDFS.Properties)+4)
	for k, v := range c.HDFS.Properties {
		props[k] = v
	}
	if c.HDFS.Namenode != "" {
		props[hdfs.FSKey] = c.HDFS.Namenode
	}
	if c.HDFS.User != "" {
		props[hdfs.UserKey] = c.HDFS.User
	}
	if c.Kerberos.Principal != "" {
		props[hdfs.KerberosPrincipalKey] = c.Kerberos.Principal
	}
	if c.Kerberos.Keytab != "" {
		props[hdfs.KerberosKeytabKey] = c.Kerberos.Keytab
	}
	return props
}
