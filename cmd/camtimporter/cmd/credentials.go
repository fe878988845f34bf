package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-camt-importer/internal/credentials"
	"golang-camt-importer/internal/session"
	"golang-camt-importer/pkg/logger"
)

var (
	sessionID string
	envFile   string
)

// credentialsCmd reports where the aggregator credentials come from
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Show where the bank-aggregator credentials are taken from",
	Long: `Credentials resolves the aggregator id and key the way an import does:
from the session first, then from the environment (AGGREGATOR_ID and
AGGREGATOR_KEY), then from a .env file. Values are masked.

Examples:
  camtimporter credentials
  camtimporter credentials --env-file config/.env --session 3f2a`,
	RunE: runCredentials,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)

	credentialsCmd.Flags().StringVar(&sessionID, "session", "", "session id to look up first")
	credentialsCmd.Flags().StringVar(&envFile, "env-file", ".env", "fallback .env file")

	viper.BindPFlag("session", credentialsCmd.Flags().Lookup("session"))
	viper.BindPFlag("env-file", credentialsCmd.Flags().Lookup("env-file"))
}

func runCredentials(cmd *cobra.Command, args []string) error {
	// sessions live in memory, so a fresh store only holds what this process saved
	store := session.NewStore(0)

	provider, err := credentials.NewSessionProvider(store, viper.GetString("session"),
		credentials.WithEnvFile(viper.GetString("env-file")),
		credentials.WithLogger(logger.GetGlobalLogger()))
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	for _, name := range []string{credentials.AggregatorID, credentials.AggregatorKey} {
		value, origin := provider.Resolve(ctx, name)
		fmt.Fprintf(out, "%-15s %-12s %s\n", name, origin, mask(value))
	}

	_, _, err = credentials.AggregatorCredentials(ctx, provider)
	return err
}

// mask keeps the first two characters of a secret
func mask(value string) string {
	if value == "" {
		return "-"
	}
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-2)
}
