package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/staffhub/shift-engine/internal/database"
	"github.com/staffhub/shift-engine/internal/models"
	"github.com/staffhub/shift-engine/internal/services"
	"github.com/staffhub/shift-engine/internal/utils"
	"github.com/staffhub/shift-engine/pkg/jwt"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func autoAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-assign",
		Short: "Assign nearby staff to open shifts once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := initApp()
			if err != nil {
				return err
			}

			loc := a.cfg.Scheduling.Location()
			shifts := database.NewShiftRepository(a.db)
			workers := database.NewWorkerRepository(a.db)
			notifier := services.NewNotificationDispatcher(
				services.NewStoreNotificationSink(database.NewNotificationRepository(a.db)), a.logger)
			lifecycle := services.NewShiftLifecycleService(shifts, workers, notifier, services.ShiftLifecycleConfig{
				Location:              loc,
				CompletionRadiusMiles: a.cfg.Scheduling.CompletionRadiusMiles,
				MaxSignatureBytes:     a.cfg.Scheduling.MaxSignatureBytes,
			}, a.logger)

			report, err := services.NewAutoAssignService(shifts, workers, database.NewSubscriptionRepository(a.db), lifecycle, loc, a.logger).Run(a.ctx)
			if err != nil {
				return fmt.Errorf("auto-assign failed: %w", err)
			}
			return printJSON(report)
		},
	}
}

func usageCmd() *cobra.Command {
	var agency string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show this month's shift usage for an agency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agencyID, err := uuid.Parse(agency)
			if err != nil {
				return fmt.Errorf("invalid --agency: %w", err)
			}

			a, err := initApp()
			if err != nil {
				return err
			}

			svc := services.NewUsageService(
				database.NewShiftRepository(a.db),
				database.NewSubscriptionRepository(a.db),
				a.cfg.Scheduling.Location(),
			)
			result, err := svc.AgencyUsage(a.ctx, models.SystemPrincipal(), agencyID)
			if err != nil {
				return err
			}
			if !result.OK() {
				return fmt.Errorf("%s: %s", result.Outcome, result.Reason)
			}
			return printJSON(result.Usage)
		},
	}

	cmd.Flags().StringVar(&agency, "agency", "", "Agency ID")
	_ = cmd.MarkFlagRequired("agency")
	return cmd
}

func clearDataCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-data",
		Short: "Truncate shift, assignment, notification and audit tables",
		Long:  "Truncate every table the shift engine writes to. Intended for test and staging databases only.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to truncate without --yes")
			}

			a, err := initApp()
			if err != nil {
				return err
			}
			if a.cfg.Server.Environment == "production" {
				return fmt.Errorf("refusing to truncate a production database")
			}

			if err := database.ClearShiftData(a.ctx, a.db); err != nil {
				return err
			}
			a.logger.Info("Shift data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the truncation")
	return cmd
}

func generateSecretsCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "generate-secrets",
		Short: "Print a random JWT signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := utils.GenerateSecret(size)
			if err != nil {
				return err
			}
			fmt.Printf("JWT_SECRET=%s\n", secret)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 64, "Secret length in random bytes")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	var (
		user   string
		role   string
		agency string
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an access token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if models.ParseRole(role) == models.RoleUnauthenticated {
				return fmt.Errorf("unknown role %q", role)
			}

			var agencyID *uuid.UUID
			if strings.TrimSpace(agency) != "" {
				id, err := uuid.Parse(agency)
				if err != nil {
					return fmt.Errorf("invalid --agency: %w", err)
				}
				agencyID = &id
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			token, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry).
				GenerateAccessToken(userID, role, agencyID)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User ID (subject)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAgencyManager), "Role claim")
	cmd.Flags().StringVar(&agency, "agency", "", "Agency ID claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
