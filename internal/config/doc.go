/*
Package config loads settings for the hdfs-put command and the writers it
creates.

Settings come from three layers, each overriding the one before it:

	compiled-in defaults (NewDefault)
	YAML file            (LoadFromFile)
	environment          (LoadFromEnv, HDFSWRITER_* and KRB5_CONFIG)

Command-line flags are applied by the caller after these layers and before
Validate.

# Configuration file format

	global:
	  log_level: INFO
	  log_format: text
	  log_file: ""
	  metrics_port: 0          # 0 disables the metrics listener

	hdfs:
	  namenode: hdfs://nn:8020
	  user: svc
	  dir_perm: "0755"
	  properties:
	    dfs.replication: "3"

	kerberos:
	  principal: svc@EXAMPLE.COM
	  keytab: /etc/security/svc.keytab
	  krb5_conf: /etc/krb5.conf

	network:
	  timeouts:
	    connect: 10s

	transfer:
	  chunk_size: 1MB
	  rate_limit: ""           # bytes per second, e.g. 20MB

# Writer properties

Properties flattens the hdfs and kerberos sections into the property map
accepted by hdfs.NewWriter. The namenode, user, principal and keytab fields
are written under fs.defaultFS, hadoop.username, hadoop.kerberos.principal
and hadoop.kerberos.keytab and replace any value for the same key under
hdfs.properties.

# Usage

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	w := hdfs.NewWriter(cfg.Properties(), "/warehouse/out.dat")
*/
package config
