package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/services"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Správa uživatelů",
	}

	var in services.CreateUserInput
	createCmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a user, optionally a superuser or a member of a group",
		Long: `Creates a user account.

Password is taken from --password or SKLAD_USER_PASSWORD.
Groups: skladnik, nakupci, udrzba.

Example:
  skladctl user create novak --email novak@hpm.cz --skupina skladnik`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Username = args[0]
			if in.Password == "" {
				in.Password = os.Getenv("SKLAD_USER_PASSWORD")
			}
			if in.Password == "" {
				return fmt.Errorf("password is required (--password or SKLAD_USER_PASSWORD)")
			}
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				user, err := newStores(db, cfg).auth.CreateUser(cmd.Context(), in)
				if err != nil {
					return err
				}
				a.logger.Info("User created",
					zap.String("username", user.Username),
					zap.Bool("superuser", in.IsSuperuser),
					zap.String("skupina", in.Skupina))
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&in.Email, "email", "", "E-mail")
	createCmd.Flags().StringVar(&in.Password, "password", "", "Password")
	createCmd.Flags().BoolVar(&in.IsSuperuser, "superuser", false, "Grant all permissions")
	createCmd.Flags().StringVar(&in.Skupina, "skupina", "", "Permission group (skladnik, nakupci, udrzba)")

	cmd.AddCommand(createCmd)
	return cmd
}
