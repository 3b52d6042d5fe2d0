package hdfs

import (
	"sort"

	"github.com/colinmarc/hdfs/v2/hadoopconf"
)

// Reserved property keys. Everything else is passed to the client as-is.
const (
	FSKey                = "fs.defaultFS"
	UserKey              = "hadoop.username"
	KerberosPrincipalKey = "hadoop.kerberos.principal"
	KerberosKeytabKey    = "hadoop.kerberos.keytab"

	// TokenKey is reserved by name only. It is not parsed and ends up in
	// ExtraConfig like any other key; token authentication is not supported.
	TokenKey = "token"
)

// ConfigEntry is a single pass-through client setting.
type ConfigEntry struct {
	Key   string
	Value string
}

// ConnectionParameters holds everything needed to reach the namenode.
type ConnectionParameters struct {
	NamenodeAddress   string
	User              string
	KerberosPrincipal string
	KerberosKeytab    string

	// ExtraConfig is ordered by key.
	ExtraConfig []ConfigEntry
}

// NeedsKerberos reports whether a ticket must be obtained before connecting.
func (p ConnectionParameters) NeedsKerberos() bool {
	return p.KerberosPrincipal != "" || p.KerberosKeytab != ""
}

// HadoopConf returns the extra settings in the form the client library reads.
func (p ConnectionParameters) HadoopConf() hadoopconf.HadoopConf {
	conf := make(hadoopconf.HadoopConf, len(p.ExtraConfig))
	for _, e := range p.ExtraConfig {
		conf[e.Key] = e.Value
	}
	return conf
}

// Lookup returns the pass-through value for key.
func (p ConnectionParameters) Lookup(key string) (string, bool) {
	for _, e := range p.ExtraConfig {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ParseProperties partitions props into the reserved connection fields and
// the generic configuration list. The input map is not modified.
func ParseProperties(props map[string]string) ConnectionParameters {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var params ConnectionParameters
	for _, k := range keys {
		v := props[k]
		switch k {
		case FSKey:
			params.NamenodeAddress = v
		case UserKey:
			params.User = v
		case KerberosPrincipalKey:
			params.KerberosPrincipal = v
		case KerberosKeytabKey:
			params.KerberosKeytab = v
		default:
			params.ExtraConfig = append(params.ExtraConfig, ConfigEntry{Key: k, Value: v})
		}
	}
	return params
}
