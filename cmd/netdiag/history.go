package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/netdiag/internal/storage"
)

type historyStore interface {
	RecentSessions(ctx context.Context, limit int) ([]storage.Session, error)
	DomainHistory(ctx context.Context, domain string, limit int) ([]storage.Session, error)
}

func historyCmd() *cobra.Command {
	var limit int
	var domain string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent diagnostic sessions from the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			db, err := storage.Open(cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			return executeHistory(cmd, db, domain, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to print")
	cmd.Flags().StringVar(&domain, "domain", "", "only show sessions for this domain")
	return cmd
}

func executeHistory(cmd *cobra.Command, db historyStore, domain string, limit int) error {
	out := cmd.OutOrStdout()

	var sessions []storage.Session
	var err error
	if domain != "" {
		sessions, err = db.DomainHistory(cmd.Context(), domain, limit)
	} else {
		sessions, err = db.RecentSessions(cmd.Context(), limit)
	}
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No session history. Run 'netdiag diagnose <domain>' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tVERDICT\tTCP\tPROBES\tFAILED\tCOMPLETE\tFINISHED")
	for _, s := range sessions {
		complete := "no"
		if s.ProbesComplete {
			complete = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			s.Domain,
			s.Verdict,
			s.TCPStatus,
			s.ProbesTotal,
			s.ProbesFailed,
			complete,
			s.FinishedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	return nil
}
