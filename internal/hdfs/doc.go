/*
Package hdfs implements a single-file writer for HDFS.

A Writer owns one target path and one client session for its lifetime:

	w := hdfs.NewWriter(map[string]string{
		"fs.defaultFS":    "hdfs://nn:8020",
		"hadoop.username": "svc",
	}, "hdfs://nn:8020/tmp/out.dat")
	defer w.Close()

	if err := w.Open(ctx); err != nil {
		return err
	}
	if _, err := hdfs.WriteAll(ctx, w, src, hdfs.CopyOptions{}); err != nil {
		return err
	}
	return w.Close()

# Properties

Four keys are reserved: fs.defaultFS, hadoop.username,
hadoop.kerberos.principal and hadoop.kerberos.keytab. Setting either Kerberos
key makes Open obtain a ticket from the keytab before connecting. Every other
key is handed to the client library unchanged, which is how HA nameservices
(dfs.nameservices, dfs.namenode.rpc-address.*) and
dfs.namenode.kerberos.principal are configured.

# Paths

A target given as a full URI is reduced to a filesystem path by stripping the
fs.defaultFS prefix. The match is textual; see NormalizePath. Open refuses to
touch an existing file and creates the parent directory when it is missing.

# Errors

All errors are *errors.HDFSError values from pkg/errors. Use
errors.IsConfigurationError, IsAlreadyExists, IsConnectionError and IsIOError
to classify them. Nothing is retried.

# Blocking

Open, Write and Close block on network I/O and have no internal timeout
beyond the TCP dial timeout. Callers that need deadlines run them on their
own goroutine and abandon the result; the Writer must still be closed.
*/
package hdfs
