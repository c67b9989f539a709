package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-adhere/internal/configstore"
)

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Validate every configuration file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := configstore.LoadDir(args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("configurations validated", "dir", args[0], "ids", snap.IDs())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d configurations valid (version %s)\n", snap.Len(), snap.Version)
			return err
		},
	}
}
