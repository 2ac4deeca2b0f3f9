package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	certs "github.com/tycrek-archive/tycrek-certs-custom"
	"github.com/tycrek-archive/tycrek-certs-custom/zombiezen"
)

var (
	issueSavePath string
	issueDBPath   string
	issueStaging  bool
	issueTimeout  time.Duration
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Register an ACME account and issue a certificate",
	Long: `Issue runs the full workflow: establish an ACME session, register an
account, validate every configured domain via DNS-01 and write
privkey.pem and fullchain.pem.

Examples:
  certs issue
  certs issue --staging --save-path /etc/ssl/private
  certs issue --db certs.db`,
	RunE: runIssue,
}

func init() {
	issueCmd.Flags().StringVar(&issueSavePath, "save-path", "", "Directory for the output files (overrides config)")
	issueCmd.Flags().StringVar(&issueDBPath, "db", "", "SQLite file to record issuance history in (optional)")
	issueCmd.Flags().BoolVar(&issueStaging, "staging", false, "Use the Let's Encrypt staging directory (overrides config)")
	issueCmd.Flags().DurationVar(&issueTimeout, "timeout", 15*time.Minute, "Overall timeout for the run")
	rootCmd.AddCommand(issueCmd)
}

func runIssue(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := certs.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("staging") {
		cfg.Staging = issueStaging
	}

	issuer, err := certs.New(*cfg, logger)
	if err != nil {
		return err
	}

	if issueDBPath != "" {
		pool, err := zombiezen.NewPool(issueDBPath)
		if err != nil {
			return fmt.Errorf("open history database %s: %w", issueDBPath, err)
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
		issuer.RecordTo(store)
	}

	if issueSavePath != "" {
		issuer.SetSavePath(issueSavePath)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), issueTimeout)
	defer cancel()

	logger.Info("starting issuance run",
		"domains", cfg.Domains,
		"directory", cfg.DirectoryURL(),
		"staging", cfg.Staging)

	if err := issuer.Init(ctx); err != nil {
		return err
	}
	if err := issuer.Account(ctx); err != nil {
		return err
	}

	result, err := issuer.CreateCertificate(ctx)
	if err != nil {
		var stageErr *certs.StageError
		if errors.As(err, &stageErr) {
			logger.Error("issuance run failed", "stage", stageErr.Stage, "error", stageErr.Err)
		}
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(os.Stdout, "Issued certificate for %v\n", cfg.Domains)
	fmt.Fprintf(os.Stdout, "  private key: %s\n", result.KeyPath)
	fmt.Fprintf(os.Stdout, "  full chain:  %s\n", result.ChainPath)
	if !result.NotAfter.IsZero() {
		fmt.Fprintf(os.Stdout, "  expires:     %s\n", result.NotAfter.Format(time.RFC3339))
	}
	return nil
}
