package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/db"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account with a password login",
	RunE: func(cmd *cobra.Command, _ []string) error {
		phone, _ := cmd.Flags().GetString("phone")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := db.MigrateUp(a.db.DB, a.logger); err != nil {
			return err
		}

		store := repo.NewStore(a.db)
		svc := auth.NewService(store.Accounts, auth.NewJWTService(a.cfg.JWTSecret), auth.NewLogNotifier(a.logger), a.logger, auth.Options{})
		acc, err := svc.CreateAdmin(cmd.Context(), auth.NewAdminInput{Phone: phone, Name: name, Password: password})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created for %s\n", acc.ID, acc.Phone)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().String("phone", "", "admin phone number")
	adminCreateCmd.Flags().String("name", "Admin", "display name")
	adminCreateCmd.Flags().String("password", "", "login password (min 8 characters)")
	_ = adminCreateCmd.MarkFlagRequired("phone")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}
