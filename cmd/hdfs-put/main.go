package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/objectfs/hdfswriter/internal/config"
	"github.com/objectfs/hdfswriter/internal/hdfs"
	"github.com/objectfs/hdfswriter/internal/metrics"
	"github.com/objectfs/hdfswriter/pkg/utils"
)

// Set through ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type putOptions struct {
	configFile string
	defines    []string
	namenode   string
	user       string
	principal  string
	keytab     string
	rateLimit  string
	logLevel   string

	// Test hooks.
	dialer     hdfs.Dialer
	isTerminal func(fd int) bool
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hdfs-put",
		Short:         "Stream a local file or stdin into a new HDFS file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newPutCmd(&putOptions{}))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newPutCmd(opts *putOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put [flags] <src|-> <dst>",
		Short: "Write src to dst, failing if dst already exists",
		Example: `  hdfs-put put --namenode hdfs://nn:8020 --user etl data.csv /warehouse/data.csv
  producer | hdfs-put put -D dfs.replication=2 - hdfs://nn:8020/tmp/out.dat`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "path to a YAML config file")
	f.StringArrayVarP(&opts.defines, "define", "D", nil, "extra HDFS client property as key=value (repeatable)")
	f.StringVar(&opts.namenode, "namenode", "", "fs.defaultFS, e.g. hdfs://nn:8020")
	f.StringVar(&opts.user, "user", "", "HDFS user for simple authentication")
	f.StringVar(&opts.principal, "principal", "", "Kerberos principal")
	f.StringVar(&opts.keytab, "keytab", "", "Kerberos keytab file")
	f.StringVar(&opts.rateLimit, "rate-limit", "", "maximum upload rate per second, e.g. 20MB")
	f.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")

	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write a config file populated with defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.NewDefault().SaveToFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hdfs-put %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
		},
	}
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(opts *putOptions) (*config.Configuration, error) {
	cfg := config.NewDefault()
	if opts.configFile != "" {
		if err := cfg.LoadFromFile(opts.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if opts.namenode != "" {
		cfg.HDFS.Namenode = opts.namenode
	}
	if opts.user != "" {
		cfg.HDFS.User = opts.user
	}
	if opts.principal != "" {
		cfg.Kerberos.Principal = opts.principal
	}
	if opts.keytab != "" {
		cfg.Kerberos.Keytab = opts.keytab
	}
	if opts.rateLimit != "" {
		cfg.Transfer.RateLimit = opts.rateLimit
	}
	if opts.logLevel != "" {
		cfg.Global.LogLevel = opts.logLevel
	}

	defines, err := parseDefines(opts.defines)
	if err != nil {
		return nil, err
	}
	if len(defines) > 0 && cfg.HDFS.Properties == nil {
		cfg.HDFS.Properties = make(map[string]string, len(defines))
	}
	for k, v := range defines {
		cfg.HDFS.Properties[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseDefines turns repeated key=value flags into a map. Later values win.
func parseDefines(defines []string) (map[string]string, error) {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		k, v, ok := strings.Cut(d, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid property %q, want key=value", d)
		}
		out[k] = v
	}
	return out, nil
}

func runPut(cmd *cobra.Command, opts *putOptions, src, dst string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	closer, err := utils.SetupLogging(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger := slog.Default().With("component", "hdfs-put")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      cfg.Global.MetricsPort,
		Path:      "/metrics",
		Namespace: "hdfswriter",
	})
	if err != nil {
		return err
	}
	if err := collector.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = collector.Stop(shutdownCtx)
	}()

	in, err := openSource(cmd, opts, src)
	if err != nil {
		return err
	}
	defer in.Close()

	dirPerm, _ := cfg.DirMode()
	chunkSize, _ := cfg.ChunkSize()
	rateLimit, _ := cfg.RateLimit()

	dialer := opts.dialer
	if dialer == nil {
		dialer = hdfs.NewDialer(
			hdfs.WithConnectTimeout(cfg.Network.Timeouts.Connect),
			hdfs.WithKrb5Conf(cfg.Kerberos.Krb5Conf),
		)
	}

	w := hdfs.NewWriter(cfg.Properties(), dst,
		hdfs.WithDialer(dialer),
		hdfs.WithMetrics(collector),
		hdfs.WithDirPerm(dirPerm),
	)

	start := time.Now()
	if err := w.Open(ctx); err != nil {
		_ = w.Close()
		return err
	}

	n, copyErr := hdfs.WriteAll(ctx, w, in, hdfs.CopyOptions{
		ChunkSize: chunkSize,
		Limiter:   hdfs.NewRateLimiter(rateLimit),
	})
	closeErr := w.Close()
	if copyErr != nil {
		if closeErr != nil {
			logger.Warn("close after failed copy", "path", w.Path(), "error", closeErr)
		}
		return fmt.Errorf("copy to %s failed after %d bytes: %w", w.Path(), n, copyErr)
	}
	if closeErr != nil {
		return closeErr
	}

	elapsed := time.Since(start)
	logger.Info("upload complete",
		"path", w.Path(),
		"bytes", n,
		"size", utils.FormatBytes(n),
		"duration", elapsed,
		"xxhash64", w.Checksum())

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\txxhash64:%s\n", w.Path(), n, w.Checksum())
	return nil
}

// openSource opens src, or stdin for "-". An interactive terminal is
// refused so the command never blocks waiting for keyboard input.
func openSource(cmd *cobra.Command, opts *putOptions, src string) (io.ReadCloser, error) {
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		return f, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		isTerminal := opts.isTerminal
		if isTerminal == nil {
			isTerminal = term.IsTerminal
		}
		if isTerminal(int(f.Fd())) {
			return nil, fmt.Errorf("refusing to read payload from a terminal; pipe data into stdin or name a file")
		}
	}
	return io.NopCloser(in), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
