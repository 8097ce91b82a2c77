package main

import (
	"errors"
	"fmt"

	"ahaarwise/internal/adapter/postgres"
	"ahaarwise/internal/app"
	"ahaarwise/internal/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var userFlags struct {
	username string
	password string
	role     string
	fullName string
	email    string
}

var useraddCmd = &cobra.Command{
	Use:   "useradd",
	Short: "Create an account in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		if cfg.DatabaseURL == "" {
			return errors.New("useradd needs DATABASE_URL; in-memory accounts do not outlive the process")
		}
		role, err := domain.ParseRole(userFlags.role)
		if err != nil {
			return err
		}

		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer func() { _ = db.Close() }()

		u, err := app.NewCredentialService(db).CreateUser(cmd.Context(),
			userFlags.username, userFlags.password, role, userFlags.fullName, userFlags.email)
		if err != nil {
			return err
		}
		log.Info("user created", zap.String("username", u.Username), zap.String("role", string(u.Role)))
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.ID)
		return nil
	},
}

func init() {
	f := useraddCmd.Flags()
	f.StringVar(&userFlags.username, "username", "", "login name")
	f.StringVar(&userFlags.password, "password", "", "password (min 8 characters)")
	f.StringVar(&userFlags.role, "role", string(domain.RolePractitioner), "admin, practitioner or assistant")
	f.StringVar(&userFlags.fullName, "full-name", "", "display name")
	f.StringVar(&userFlags.email, "email", "", "contact email")
	_ = useraddCmd.MarkFlagRequired("username")
	_ = useraddCmd.MarkFlagRequired("password")
}
