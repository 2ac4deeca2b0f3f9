package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tycrek-archive/tycrek-certs-custom/zombiezen"
)

var (
	historyDBPath string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past issuances recorded in the history database",
	Long: `History lists certificates recorded by previous runs of "issue --db".

Examples:
  certs history --db certs.db
  certs history --db certs.db --limit 20`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDBPath, "db", "certs.db", "SQLite history file")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of records to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	pool, err := zombiezen.NewPool(historyDBPath)
	if err != nil {
		return fmt.Errorf("open history database %s: %w", historyDBPath, err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Error("failed to close history database", "error", err)
		}
	}()

	store := zombiezen.NewStore(pool)
	if err := store.Migrate(cmd.Context()); err != nil {
		return err
	}

	records, err := store.Latest(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "No issuances recorded")
		return nil
	}

	bold := color.New(color.Bold)
	for _, rec := range records {
		bold.Fprintf(os.Stdout, "%s\n", rec.Identifier)
		fmt.Fprintf(os.Stdout, "  domains: %s\n", rec.Domains)
		fmt.Fprintf(os.Stdout, "  issued:  %s\n", rec.IssuedAt.Format(time.RFC3339))
		if !rec.ExpiresAt.IsZero() {
			fmt.Fprintf(os.Stdout, "  expires: %s\n", rec.ExpiresAt.Format(time.RFC3339))
		}
	}
	return nil
}
