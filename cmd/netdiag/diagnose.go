package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/netdiag/internal/client"
	"github.com/hazz-dev/netdiag/internal/notify"
	"github.com/hazz-dev/netdiag/internal/output"
	"github.com/hazz-dev/netdiag/internal/session"
	"github.com/hazz-dev/netdiag/internal/storage"
)

type diagnoseFlags struct {
	backend  string
	interval time.Duration
	deadline time.Duration
	jsonOut  bool
	noStore  bool
}

func diagnoseCmd() *cobra.Command {
	var flags diagnoseFlags
	cmd := &cobra.Command{
		Use:   "diagnose <domain>",
		Short: "Run one diagnostic session for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.backend, "backend", "", "backend API URL (overrides config)")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "measurement poll interval (overrides config)")
	cmd.Flags().DurationVar(&flags.deadline, "deadline", 0, "measurement poll deadline (overrides config)")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the final session as JSON")
	cmd.Flags().BoolVar(&flags.noStore, "no-store", false, "do not record the session in the history database")
	return cmd
}

func runDiagnose(cmd *cobra.Command, domain string, flags diagnoseFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	backend := cfg.Backend.URL
	if flags.backend != "" {
		backend = flags.backend
	}
	opts := session.Options{
		PollInterval: cfg.Poll.Interval.Duration,
		PollDeadline: cfg.Poll.Deadline.Duration,
	}
	if flags.interval > 0 {
		opts.PollInterval = flags.interval
	}
	if flags.deadline > 0 {
		opts.PollDeadline = flags.deadline
	}

	var store sessionStore
	if !flags.noStore {
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		store = db
	}

	var notifier *notify.Notifier
	if cfg.Alerts.Webhook.URL != "" {
		notifier = notify.New(cfg.Alerts.Webhook.URL, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	api := client.New(backend, cfg.Backend.Timeout.Duration)
	return executeDiagnose(ctx, cmd.OutOrStdout(), api, store, notifier, domain, opts, flags.jsonOut)
}

// sessionStore is the slice of storage used by diagnose.
type sessionStore interface {
	InsertSession(ctx context.Context, s storage.Session) error
}

func executeDiagnose(ctx context.Context, out io.Writer, api *client.Client, db sessionStore, notifier *notify.Notifier, domain string, opts session.Options, jsonOut bool) error {
	// Progress lines go to the terminal as each snapshot merges; the
	// final report renders once the session terminates.
	onUpdate := func(st session.State, v session.Verdict) {
		if jsonOut {
			return
		}
		fmt.Fprintln(out, output.RenderProgress(st, v))
	}

	runner := session.NewRunner(api, api, slog.New(slog.DiscardHandler))
	st, verdict, err := runner.Run(ctx, domain, opts, onUpdate)
	if err != nil {
		return err
	}

	if jsonOut {
		s, err := output.RenderJSON(st, verdict)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
	} else {
		fmt.Fprintln(out, output.RenderPretty(st, verdict))
	}

	if db != nil {
		rec := storage.NewSession(st, verdict, time.Now())
		if err := db.InsertSession(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording session: %v\n", err)
		}
	}

	if notifier != nil {
		if err := notifier.Notify(ctx, st, verdict); err != nil {
			fmt.Fprintf(os.Stderr, "warning: sending alert: %v\n", err)
		}
	}

	if verdict == session.VerdictUnavailable {
		return fmt.Errorf("%s is unavailable", domain)
	}
	return nil
}
