// Package main provides admin management utilities for Bolify.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"bolify/internal/bootstrap"
	"bolify/internal/config"
	"bolify/internal/models"
	"bolify/internal/repository"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Manage Bolify administrator accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable output")

	cmd.AddCommand(newSetRoleCmd("promote", "Promote a user to admin", models.RoleAdmin, &jsonOutput))
	cmd.AddCommand(newSetRoleCmd("demote", "Demote an admin to a regular user", models.RoleUser, &jsonOutput))
	cmd.AddCommand(newListAdminsCmd(&jsonOutput))
	return cmd
}

// withUsers opens the configured store for the duration of fn.
func withUsers(ctx context.Context, fn func(users repository.UserRepository) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(closeCtx)
	}()
	return fn(rt.Users)
}

func newSetRoleCmd(use, short string, role models.Role, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if !models.IsValidID(userID) {
				return fmt.Errorf("invalid user id %q", userID)
			}
			return withUsers(cmd.Context(), func(users repository.UserRepository) error {
				user, err := users.GetByID(cmd.Context(), userID)
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("user %s not found", userID)
				}
				if err != nil {
					return err
				}
				if user.Role != role {
					if err := users.SetRole(cmd.Context(), userID, role); err != nil {
						return err
					}
					user.Role = role
				}

				if *jsonOutput {
					return writeJSON(user)
				}
				fmt.Printf("%s (%s) is now %s\n", user.FullName, user.ID, user.Role)
				return nil
			})
		},
	}
}

func newListAdminsCmd(jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List all admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUsers(cmd.Context(), func(users repository.UserRepository) error {
				admins, err := users.ListByRole(cmd.Context(), models.RoleAdmin)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(admins)
				}
				if len(admins) == 0 {
					fmt.Println("No admins found")
					return nil
				}
				for _, a := range admins {
					fmt.Printf("ID: %s | Name: %s | Email: %s\n", a.ID, a.FullName, a.Email)
				}
				return nil
			})
		},
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
