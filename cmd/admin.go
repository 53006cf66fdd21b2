/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/orderdesk/apiserver/config"
	"github.com/orderdesk/apiserver/internal/db"
	"github.com/orderdesk/apiserver/internal/dbx"
	"github.com/orderdesk/apiserver/internal/services"
	"github.com/orderdesk/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var adminEmail string

// adminCmd represents the admin command
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Grant or revoke the admin flag on an account",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Make the account with --email an admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, true)
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Remove admin rights from the account with --email",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminGrantCmd)
	adminCmd.AddCommand(adminRevokeCmd)

	adminCmd.PersistentFlags().StringVar(&adminEmail, "email", "", "email of the account to change")
	_ = adminCmd.MarkPersistentFlagRequired("email")
}

func setAdmin(cmd *cobra.Command, admin bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("the memory driver does not persist accounts")
	}

	ctx := cmd.Context()
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	users := services.NewUserService(dbx.NewRunner(conn), store.Postgres{}, nil, cfg.Auth.BcryptCost)
	if err := users.SetAdmin(ctx, adminEmail, admin); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("no account with email %q", adminEmail)
		}
		return err
	}

	logger.Info(ctx, "admin flag updated", "email", services.NormalizeEmail(adminEmail), "admin", admin)
	return nil
}
