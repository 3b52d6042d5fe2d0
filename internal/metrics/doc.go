/*
Package metrics exposes writer activity as Prometheus metrics.

Collector satisfies hdfs.Recorder, so it can be passed straight to
hdfs.WithMetrics. It registers the following series on a private registry
(shown with the default "hdfswriter" namespace):

	hdfswriter_operations_total{operation,status}
	hdfswriter_operation_duration_seconds{operation}
	hdfswriter_bytes_written_total
	hdfswriter_errors_total{operation,code}
	hdfswriter_open_writers

The code label carries the writer error code (FILE_EXISTS, STORAGE_FLUSH,
and so on), "timeout" or "canceled" for context errors, and "other" for
anything else.

When Config.Port is non-zero, Start serves /metrics, /health and
/debug/operations until Stop is called:

	collector, err := metrics.NewCollector(&metrics.Config{Enabled: true, Port: 9102})
	if err != nil {
		return err
	}
	if err := collector.Start(ctx); err != nil {
		return err
	}
	defer collector.Stop(context.Background())

	w := hdfs.NewWriter(props, path, hdfs.WithMetrics(collector))
*/
package metrics
