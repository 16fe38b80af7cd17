package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"relay/pkg/activity"
	"relay/pkg/audit"
	"relay/pkg/daemon"
	"relay/pkg/watcher"
)

// newStartCmd creates the "relay start" subcommand.
func newStartCmd() *cobra.Command {
	var (
		background bool
		fallback   bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the coordination daemon",
		Long:  "Starts the singleton daemon: watches context directories, tracks the\nactive context, and refreshes the status file on a fixed tick.\nWith --background the daemon detaches from the terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := bootstrapStateDir(a.paths); err != nil {
				return err
			}

			state, pid, err := daemon.CheckLock(a.paths.PIDPath)
			if err != nil {
				return err
			}
			if state == daemon.LockRunning {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon already running (PID %d)\n", pid)
				return nil
			}

			if background {
				return runBackgroundStart(cmd, a, &daemon.ExecDetacher{}, fallback)
			}
			return runForeground(cmd, a, fallback)
		},
	}

	cmd.Flags().BoolVarP(&background, "background", "b", false, "detach the daemon from the terminal")
	cmd.Flags().BoolVarP(&fallback, "fallback", "f", false, "use the fallback port set")

	return cmd
}

// runBackgroundStart detaches a foreground child and reports its PID. The
// child does its own lock handling and PID file write.
func runBackgroundStart(cmd *cobra.Command, a *app, det daemon.Detacher, fallback bool) error {
	args := []string{"start"}
	if fallback {
		args = append(args, "--fallback")
	}
	pid, err := det.Detach(args, a.paths.LogPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "daemon started in background (PID %d, log %s)\n", pid, a.paths.LogPath)
	return nil
}

// runForeground assembles the tracker, watcher, auditor, and mailbox
// cleanup, then blocks in the daemon loop until SIGINT/SIGTERM.
func runForeground(cmd *cobra.Command, a *app, fallback bool) error {
	ports := a.reg.Ports(fallback)
	fmt.Fprintf(cmd.OutOrStdout(), "starting daemon (PID %d, ports %v)\n", os.Getpid(), ports)

	tracker := activity.NewTracker(seconds(a.cfg.ActivityWindowSeconds))

	w, err := watcher.New(watchDirs(a), tracker, a.logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if ms := a.cfg.DebounceMillis; ms > 0 {
		w.SetDebounce(time.Duration(ms) * time.Millisecond)
	}
	w.Start()
	defer func() { _ = w.Stop() }()

	auditCfg, err := audit.LoadConfig(a.paths.AuditPath)
	if err != nil {
		return err
	}
	auditor := audit.New(a.reg, auditCfg, a.paths.Root, a.paths.MessagesPath)

	box, store, err := a.openMailbox()
	if err != nil {
		return err
	}
	defer store.Close()
	cleanup := func() error {
		removed, err := box.Trim(a.cfg.MaxReadMessages)
		if err != nil {
			return err
		}
		if removed > 0 {
			a.logger.Printf("cleanup: trimmed %d read message(s)", removed)
		}
		return nil
	}

	statuses, err := newStatusStore(a)
	if err != nil {
		return err
	}

	dcfg := daemon.Config{
		Tick:            seconds(a.cfg.TickSeconds),
		HealthInterval:  seconds(a.cfg.HealthIntervalSeconds),
		CleanupInterval: seconds(a.cfg.CleanupIntervalSeconds),
		Fallback:        fallback,
	}
	d := daemon.New(dcfg, a.paths.PIDPath, statuses, tracker, auditor, cleanup, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
	return nil
}

// watchDirs maps each context to its watched directories, resolved against
// the project root. Contexts without watch_dirs fall back to their context
// file's directory.
func watchDirs(a *app) map[string][]string {
	dirs := make(map[string][]string)
	for _, ctx := range a.reg.Contexts() {
		if len(ctx.WatchDirs) == 0 {
			dirs[ctx.ID] = []string{filepath.Join(a.paths.Root, filepath.Dir(ctx.File))}
			continue
		}
		for _, d := range ctx.WatchDirs {
			dirs[ctx.ID] = append(dirs[ctx.ID], filepath.Join(a.paths.Root, d))
		}
	}
	return dirs
}
