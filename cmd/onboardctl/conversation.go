package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:   "conversation",
	Short: "Inspect or reset a user's onboarding conversation",
}

var conversationShowCmd = &cobra.Command{
	Use:   "show <user_id>",
	Short: "Print the conversation as bot and user messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}

		e, err := newEnv(true)
		if err != nil {
			return err
		}
		defer e.log.Sync() //nolint:errcheck

		history, err := e.onboardingService().FlatHistory(cmd.Context(), userID)
		if err != nil {
			return err
		}

		if len(history) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no conversation yet")
			return nil
		}
		for _, msg := range history {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s: %s\n", msg.Role, msg.Message)
		}
		return nil
	},
}

var conversationResetCmd = &cobra.Command{
	Use:   "reset <user_id>",
	Short: "Restart the conversation from a fresh welcome message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}

		e, err := newEnv(true)
		if err != nil {
			return err
		}
		defer e.log.Sync() //nolint:errcheck

		resp, err := e.onboardingService().StartConversation(cmd.Context(), userID)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "conversation restarted: %s\n", resp.Message)
		fmt.Fprintln(cmd.OutOrStdout(), "the question bank is generated by the API worker on its next poll")
		return nil
	},
}

func init() {
	conversationCmd.AddCommand(conversationShowCmd, conversationResetCmd)
	rootCmd.AddCommand(conversationCmd)
}
