package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/diagram-service/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the diagram API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := auth.NewAccessToken(os.Getenv("JWT_SECRET"), subject, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "token subject, recorded as diagram author")
	cmd.Flags().StringVar(&role, "role", auth.RoleEditor, "viewer | editor | admin")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
