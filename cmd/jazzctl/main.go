// Command jazzctl is the operator console for Jazz Picker: band codes, key transposition,
// the song catalog, bands, setlists and profiles.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	outputFormat string
	actingUser   string

	cfg      *config.Config
	cliLog   *zap.Logger
	services *firestoreServices
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jazzctl",
	Short: "Jazz Picker operator console",
	Long: `jazzctl inspects and manages the Jazz Picker catalog and the Firestore data behind
the apps.

Catalog commands talk to the catalog API at CATALOG_API_BASE_URL. Band, setlist and
profile commands use the Firebase service account at FIREBASE_SERVICE_ACCOUNT_KEY_PATH.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutputFormat(outputFormat); err != nil {
			return err
		}
		var err error
		cfg, err = config.LoadForClient()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cliLog, err = logger.NewCLI(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if services != nil {
			services.Close()
			services = nil
		}
		if cliLog != nil {
			_ = cliLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&actingUser, "as", "", "User id to act as for band, setlist and profile commands")

	rootCmd.AddCommand(codeCmd, transposeCmd, songsCmd, cacheCmd, bandsCmd, setlistsCmd, profileCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// requireUser returns the --as user id.
func requireUser() (string, error) {
	if actingUser == "" {
		return "", fmt.Errorf("this command needs --as <user id>")
	}
	return actingUser, nil
}
