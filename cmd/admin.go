package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/delivery-service/internal/application"
	"github.com/psds-microservice/delivery-service/internal/model"
	"github.com/psds-microservice/delivery-service/internal/validation"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin credentials",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or reset an admin login",
	RunE:  runAdminCreate,
}

var (
	adminUsername string
	adminPassword string
)

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (8+ chars, upper, lower, digit, symbol)")
	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	if err := validation.Login(adminUsername, adminPassword).Err(); err != nil {
		return fmt.Errorf("admin create: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw, closeStore, err := application.OpenStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer closeStore()

	if err := gw.SaveAdmin(ctx, model.AdminCredential{Username: adminUsername, Password: adminPassword}); err != nil {
		return fmt.Errorf("admin create: %w", err)
	}
	slog.Info("admin create: ok", "username", adminUsername)
	return nil
}
