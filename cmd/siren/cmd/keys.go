package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/siren/internal/core/auth"
	"github.com/solatis/siren/internal/core/config"
	"github.com/solatis/siren/internal/types"
)

var (
	keyName     string
	keySecretID string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Long: `Issue a new API key signed with one of the SIREN_HMAC_SECRET secrets.
The key is printed once; only its HMAC is stored.`,
	Args: cobra.NoArgs,
	RunE: runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)
	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "key name (required)")
	keysCreateCmd.Flags().StringVar(&keySecretID, "secret-id", "", "secret to sign with (default: the only configured secret)")
	_ = keysCreateCmd.MarkFlagRequired("name")
}

func newAuthenticator() (*auth.Authenticator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := requireMigrated(database); err != nil {
		database.Close()
		return nil, nil, err
	}
	return auth.NewAuthenticator(secrets, queries, logger.Named("auth")), func() { database.Close() }, nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	authenticator, closeDB, err := newAuthenticator()
	if err != nil {
		return err
	}
	defer closeDB()

	key, id, err := authenticator.CreateKey(keyName, keySecretID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "key id: %s\n", id)
	fmt.Fprintf(out, "api key: %s\n", key)
	fmt.Fprintln(out, "store this key now; it cannot be shown again")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	id, err := types.ParseID(args[0])
	if err != nil {
		return fmt.Errorf("invalid key id %q: %w", args[0], err)
	}
	authenticator, closeDB, err := newAuthenticator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := authenticator.RevokeKey(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "key %s revoked\n", id)
	return nil
}
