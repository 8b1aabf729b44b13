package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-passwords",
		Short: "Hash legacy plaintext passwords in the users file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			n, err := a.auth.MigratePlaintextPasswords(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d password(s)\n", n)
			return nil
		},
	}
}
