package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/cmdlog/internal/archive"
	serverrun "github.com/rzbill/cmdlog/internal/cmd/server"
	cfgpkg "github.com/rzbill/cmdlog/internal/config"
	"github.com/rzbill/cmdlog/internal/filter"
	pebblestore "github.com/rzbill/cmdlog/internal/storage/pebble"
	logpkg "github.com/rzbill/cmdlog/pkg/log"
)

// daemonEnv marks the re-executed child so it does not detach again.
const daemonEnv = "CMDLOG_DAEMONIZED"

func main() {
	level := os.Getenv("CMDLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:           "cmdlog",
		Short:         "Circular command log server",
		Long:          "cmdlog keeps the most recent newline-terminated commands in a fixed-size ring and serves them over TCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServerCommand(logger), newSendCommand(), newArchiveCommand())

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}

func newServerCommand(logger logpkg.Logger) *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the command log server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			daemon, _ := cmd.Flags().GetBool("daemon")
			if daemon && os.Getenv(daemonEnv) == "" {
				path, _ := cmd.Flags().GetString("config")
				childArgs, err := daemonArgs(os.Args[1:], path, cfg.DataDir)
				if err != nil {
					return fmt.Errorf("daemonize: %w", err)
				}
				pid, err := detach(childArgs)
				if err != nil {
					return fmt.Errorf("daemonize: %w", err)
				}
				logger.Info("detached", logpkg.Int("pid", pid))
				return nil
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := startCmd.Flags()
	f.String("config", os.Getenv("CMDLOG_CONFIG"), "Path to a JSON config file")
	f.BoolP("daemon", "d", false, "Detach from the terminal and run in the background")
	f.String("listen", "", "TCP listen address (default :9000)")
	f.Int("capacity", 0, "Number of entries kept in the ring (default 10)")
	f.Duration("timestamp-interval", 0, "Interval between timestamp records (default 10s)")
	f.Bool("no-timestamps", false, "Disable the periodic timestamp record")
	f.Duration("drain-timeout", 0, "Force-close worker connections after this long during shutdown (0 waits)")
	f.String("http", "", "Admin HTTP listen address (disabled when empty)")
	f.String("grpc", "", "gRPC health listen address (disabled when empty)")
	f.Bool("archive", false, "Archive evicted entries to Pebble")
	f.String("data-dir", "", "Archive data directory (if not specified, uses OS-specific application data directory)")
	f.String("fsync", "", "Archive fsync mode: always|interval|never")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

// pathFlags are rewritten to absolute paths for the daemon child, which runs from /.
var pathFlags = []string{"config", "data-dir"}

// daemonArgs drops any path flags from args and appends the resolved config
// file and data directory as absolute paths.
func daemonArgs(args []string, configPath, dataDir string) ([]string, error) {
	out := make([]string, 0, len(args)+len(pathFlags))
	for i := 0; i < len(args); i++ {
		inline, ok := pathFlag(args[i])
		if !ok {
			out = append(out, args[i])
			continue
		}
		if !inline {
			i++
		}
	}
	for _, kv := range [][2]string{{"config", configPath}, {"data-dir", dataDir}} {
		if kv[1] == "" {
			continue
		}
		abs, err := filepath.Abs(kv[1])
		if err != nil {
			return nil, fmt.Errorf("resolve --%s: %w", kv[0], err)
		}
		out = append(out, "--"+kv[0]+"="+abs)
	}
	return out, nil
}

// pathFlag reports whether arg is a path flag and whether its value is inline.
func pathFlag(arg string) (inline, ok bool) {
	for _, f := range pathFlags {
		switch {
		case arg == "--"+f:
			return false, true
		case strings.HasPrefix(arg, "--"+f+"="):
			return true, true
		}
	}
	return false, false
}

// loadConfig layers defaults, the config file, CMDLOG_* env and then flags
// the user actually set.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	cfgpkg.FromEnv(&cfg)

	if f.Changed("listen") {
		cfg.ListenAddr, _ = f.GetString("listen")
	}
	if f.Changed("capacity") {
		cfg.Capacity, _ = f.GetInt("capacity")
	}
	if f.Changed("timestamp-interval") {
		d, _ := f.GetDuration("timestamp-interval")
		cfg.TimestampInterval = cfgpkg.Duration(d)
	}
	if off, _ := f.GetBool("no-timestamps"); off {
		cfg.TimestampEnabled = false
	}
	if f.Changed("drain-timeout") {
		d, _ := f.GetDuration("drain-timeout")
		cfg.DrainTimeout = cfgpkg.Duration(d)
	}
	if f.Changed("http") {
		cfg.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("grpc") {
		cfg.GRPCAddr, _ = f.GetString("grpc")
	}
	if on, _ := f.GetBool("archive"); on {
		cfg.ArchiveEnabled = true
	}
	if f.Changed("data-dir") {
		cfg.DataDir, _ = f.GetString("data-dir")
	}
	if f.Changed("fsync") {
		cfg.Fsync, _ = f.GetString("fsync")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.LogFormat, _ = f.GetString("log-format")
	}
	return cfg, cfg.Validate()
}

func newSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <command...>",
		Short: "Append one record and print the log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			conn, err := net.DialTimeout("tcp", addr, timeout)
			if err != nil {
				return err
			}
			defer conn.Close()
			line := strings.Join(args, " ")
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			if _, err := io.WriteString(conn, line); err != nil {
				return err
			}
			_, err = io.Copy(cmd.OutOrStdout(), conn)
			return err
		},
	}
	cmd.Flags().String("addr", envOr("CMDLOG_ADDR", "127.0.0.1:9000"), "Server address")
	cmd.Flags().Duration("timeout", 5*time.Second, "Dial timeout")
	return cmd
}

func newArchiveCommand() *cobra.Command {
	archiveCmd := &cobra.Command{Use: "archive", Short: "Eviction archive commands"}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived entries (the server must not hold the data dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			limit, _ := cmd.Flags().GetInt("limit")
			start, _ := cmd.Flags().GetUint64("start")
			reverse, _ := cmd.Flags().GetBool("reverse")
			expr, _ := cmd.Flags().GetString("filter")
			if dataDir == "" {
				dataDir = cfgpkg.DefaultDataDir()
			}
			flt, err := filter.Compile(expr)
			if err != nil {
				return err
			}
			if _, err := os.Stat(dataDir); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no archive at %s", dataDir)
			}
			db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir, Fsync: pebblestore.FsyncModeNever})
			if err != nil {
				return err
			}
			defer db.Close()
			arc, err := archive.Open(db, archive.Options{})
			if err != nil {
				return err
			}
			items, next, err := arc.Read(archive.ReadOptions{StartSeq: start, Limit: limit, Reverse: reverse})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, it := range items {
				if !flt.Match(filter.Subject{Index: int(it.Seq), Data: it.Data, EvictedAtMs: it.EvictedAtMs, Reason: it.Reason.String()}) {
					continue
				}
				at := time.UnixMilli(it.EvictedAtMs).UTC().Format(time.RFC3339Nano)
				fmt.Fprintf(out, "%d\t%s\t%s\t%q\n", it.Seq, at, it.Reason, it.Data)
			}
			if next != 0 {
				fmt.Fprintf(out, "# next: %d\n", next)
			}
			return nil
		},
	}
	listCmd.Flags().String("data-dir", os.Getenv("CMDLOG_DATA_DIR"), "Archive data directory")
	listCmd.Flags().Int("limit", 100, "Maximum records to print (0 for all)")
	listCmd.Flags().Uint64("start", 0, "First sequence to print")
	listCmd.Flags().Bool("reverse", false, "Newest first")
	listCmd.Flags().String("filter", "", "CEL filter expression")
	archiveCmd.AddCommand(listCmd)
	return archiveCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
