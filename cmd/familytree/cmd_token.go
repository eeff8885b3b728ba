package main

import (
	"fmt"
	"os"
	"time"

	"familytree/pkg/auth"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		roles  []string
		issuer string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			generator, err := auth.NewJWTGenerator(auth.JWTConfig{
				SecretKey: os.Getenv("JWT_SECRET"),
				Issuer:    issuer,
				Expiry:    expiry,
			})
			if err != nil {
				return fmt.Errorf("JWT_SECRET: %w", err)
			}

			token, err := generator.GenerateToken(userID, email, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "subject of the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim, repeatable")
	cmd.Flags().StringVar(&issuer, "issuer", os.Getenv("JWT_ISSUER"), "issuer claim")
	cmd.Flags().DurationVar(&expiry, "expiry", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
