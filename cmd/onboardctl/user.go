package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/models"
	"alfredoptarigan/interview-onboarding/internal/repositories"
)

var (
	userEmail     string
	userFirstName string
	userLastName  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user that can start onboarding",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := strings.TrimSpace(userEmail)
		if email == "" {
			return errors.New("--email is required")
		}

		e, err := newEnv(true)
		if err != nil {
			return err
		}
		defer e.log.Sync() //nolint:errcheck

		user := &models.User{Email: email, IsActive: true}
		if name := strings.TrimSpace(userFirstName); name != "" {
			user.FirstName = &name
		}
		if name := strings.TrimSpace(userLastName); name != "" {
			user.LastName = &name
		}

		if err := repositories.NewUserRepository(e.db).Create(cmd.Context(), user); err != nil {
			return err
		}

		e.log.Info("user created", zap.String("user_id", user.ID.String()))
		fmt.Fprintln(cmd.OutOrStdout(), user.ID.String())
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address (required)")
	userAddCmd.Flags().StringVar(&userFirstName, "first-name", "", "first name used in the welcome message")
	userAddCmd.Flags().StringVar(&userLastName, "last-name", "", "last name")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
