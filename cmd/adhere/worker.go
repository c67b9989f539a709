package main

import (
	"github.com/spf13/cobra"

	"github.com/ahrav/go-adhere/internal/worker"
	"github.com/ahrav/go-adhere/pkg/events"
)

func workerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal batch scoring worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return worker.Serve(cmd.Context(), a.cfg, events.NewLogSink(a.logger), a.logger)
		},
	}
}
