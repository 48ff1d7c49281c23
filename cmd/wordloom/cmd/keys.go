package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/wordloom/internal/core/auth"
	"github.com/solatis/wordloom/internal/core/config"
	"github.com/solatis/wordloom/internal/types"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for a tenant",
		Long: `Issue an API key bound to the newest HMAC secret in WL_HMAC_SECRET or
WL_HMAC_SECRET_N. The key is printed once and only its HMAC is stored.`,
		Args: cobra.NoArgs,
		RunE: runKeysCreate,
	}
	createCmd.Flags().String("tenant", "default", "tenant the key authenticates as")
	createCmd.Flags().String("name", "", "label for the key (required)")
	_ = createCmd.MarkFlagRequired("name")

	cmd.AddCommand(createCmd)
	return cmd
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}

	database, queries, err := openDatabase(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	tenant, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	issued, err := auth.NewAuthenticator(secrets, queries, logger).Issue(cmd.Context(), types.TenantID(tenant), name)
	if err != nil {
		return err
	}

	logger.Info("api key issued", "api_key_id", issued.ID, "tenant_id", issued.TenantID, "name", issued.Name)
	fmt.Fprintln(cmd.OutOrStdout(), issued.Key)
	return nil
}
