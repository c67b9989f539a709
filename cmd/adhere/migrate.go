package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-adhere/internal/migrate"
)

func migrateCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "migrate <file>",
		Short: "Convert legacy frequency phrases in a JSON array of records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read records: %w", err)
			}
			_, changes, err := migrate.Records(data)
			if err != nil {
				return err
			}

			records := make([]json.RawMessage, len(changes))
			migrated := 0
			for i, c := range changes {
				records[i] = c.Rewritten
				if c.Migrated {
					migrated++
					a.logger.Info("record migrated",
						"config_id", c.ConfigID,
						"phrase", c.Result.Phrase,
						"rule", c.Result.Rule)
				}
			}
			body, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			body = append(body, '\n')

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(body)
			} else {
				err = os.WriteFile(out, body, 0o644)
			}
			if err != nil {
				return fmt.Errorf("write records: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d records migrated\n", migrated, len(changes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}
