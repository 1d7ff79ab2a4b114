package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/bootstrap"
	"github.com/civicdesk/complaints-service/internal/service"
)

var superuser service.UserInput

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser",
	Short: "Create a system administrator, or report the existing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := bootstrap.OpenStore(ctx, *cfg, logger)
		if err != nil {
			return err
		}
		if store.Close != nil {
			defer store.Close(ctx) //nolint:errcheck
		}

		admin := service.NewAdminService(*cfg, service.AdminDependencies{
			UserRepo:   store.Users,
			AgencyRepo: store.Agencies,
			Logger:     logger,
		})
		user, created, err := admin.CreateSuperuser(ctx, superuser)
		if err != nil {
			return err
		}
		if !created {
			logger.Info("superuser already exists", zap.String("user_id", user.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists (%s, role %s)\n", user.Email, user.ID, user.Role)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created system admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	flags := createSuperuserCmd.Flags()
	flags.StringVar(&superuser.Email, "email", "", "login email")
	flags.StringVar(&superuser.Password, "password", "", "initial password")
	flags.StringVar(&superuser.FullName, "full-name", "", "display name")
	flags.StringVar(&superuser.PhoneNumber, "phone", "", "phone number")
	flags.StringVar(&superuser.NationalID, "national-id", "", "16 digit national id")
	for _, name := range []string{"email", "password", "full-name", "phone", "national-id"} {
		_ = createSuperuserCmd.MarkFlagRequired(name)
	}
}
