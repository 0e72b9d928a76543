package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"repairshop/internal/auth"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		identity auth.Identity
		secret   string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an operator or test customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("a signing secret is required (--secret or AUTH_JWT_SECRET)")
			}
			if identity.ID == "" {
				return errors.New("--id is required")
			}
			token, err := auth.NewTokens(secret).Issue(identity, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&identity.ID, "id", "", "subject id")
	cmd.Flags().StringVar(&identity.Email, "email", "", "e-mail claim")
	cmd.Flags().StringVar(&identity.Role, "role", "", "role claim (admin for the admin API)")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("AUTH_JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
