// Command jobsync runs the external job synchronization service.
//
// Pulls postings from the JSearch aggregator on a schedule, merges them into
// the canonical job collection keyed on their external id, and signals
// connected clients when new or changed jobs are available.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/config"
	"github.com/Devjadhav25/Prashikshan-sub001/internal/logging"
)

const version = "1.0.0"

var (
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "jobsync",
	Short:         "Synchronize external job postings into the canonical job store",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = c
		logCloser = logging.Setup(logging.Options{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[jobsync] %v\n", err)
		os.Exit(1)
	}
}
