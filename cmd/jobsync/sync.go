package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/ingest"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync and print its report",
	Long: `Run a single fetch-normalize-merge cycle and exit.

The report is printed as JSON. The command exits non-zero when the run
fails at the fetch step; skipped records do not fail the run. When
REDIS_URL is set, merged jobs are announced to every running server.

Example usage:
  jobsync sync
  jobsync sync --query "Data Analyst"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		if query == "" {
			query = cfg.SyncQuery
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		owner, err := resolveOwner(ctx, st, cfg)
		if err != nil {
			return err
		}

		bc, rdb, err := newBroadcaster(ctx, cfg, nil)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
		}

		rep := newSyncer(cfg, st, owner.ID, bc).Run(ctx, query)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
		if rep.State == ingest.StateFailed {
			return fmt.Errorf("sync run %s failed: %s", rep.RunID, rep.Err)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringP("query", "q", "", "Search query (defaults to SYNC_QUERY)")
	rootCmd.AddCommand(syncCmd)
}
