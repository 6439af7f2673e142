package cli

import (
	"fmt"

	"waffle-pos-backend/internal/auth"
	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/models"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(createUserCmd)

	createUserCmd.Flags().String("name", "", "Display name")
	createUserCmd.Flags().String("email", "", "Login email")
	createUserCmd.Flags().String("password", "", "Initial password (at least 8 characters)")
	createUserCmd.Flags().String("role", string(models.RoleCashier), "cashier, manager or admin")
	_ = createUserCmd.MarkFlagRequired("name")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a staff account in the configured store",
	RunE:  runCreateUser,
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	user, err := auth.CreateUser(ctx, store.Users, name, email, password, models.UserRole(role))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
