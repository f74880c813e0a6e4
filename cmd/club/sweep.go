// cmd/club/sweep.go
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clubhouse/internal/sweep"
)

func init() {
	rootCmd.AddCommand(sweepOnceCmd())
}

func sweepOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Applies due, approved change requests once and exits",
		Run: func(cmd *cobra.Command, args []string) {
			log := logrus.WithField("service", ServiceName)

			app, err := buildApp(log)
			if err != nil {
				log.WithError(err).Fatal("failed to build application")
			}
			defer app.close()

			sweeper := sweep.New(app.requests, time.Hour, log.WithField("component", "sweep"))
			applied, err := sweeper.RunOnce(context.Background())
			if err != nil {
				log.WithError(err).Fatal("sweep failed")
			}
			log.WithField("applied", applied).Info("sweep finished")
		},
	}
}
