// cmd/club/run.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"clubhouse/internal/sweep"
	"clubhouse/pkg/tracing"
)

func init() {
	rootCmd.AddCommand(runCmd())
}

func runCmd() *cobra.Command {
	var sweepInterval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Starts the HTTP service and the deferred-effect sweeper",
		Run: func(cmd *cobra.Command, args []string) {
			log := logrus.WithField("service", ServiceName)

			ctx := context.Background()
			if getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "") != "" {
				shutdown, err := tracing.Init(ctx, ServiceName)
				if err != nil {
					log.WithError(err).Fatal("failed to initialize tracing")
				}
				defer shutdown(ctx)
			}

			app, err := buildApp(log)
			if err != nil {
				log.WithError(err).Fatal("failed to build application")
			}
			defer app.close()

			registry := prometheus.NewRegistry()
			if err := sweep.RegisterMetrics(registry); err != nil {
				log.WithError(err).Fatal("failed to register metrics")
			}

			sweeper := sweep.New(app.requests, sweepInterval, log.WithField("component", "sweep"))
			sweeper.Start()
			defer sweeper.Stop()

			router := chi.NewRouter()
			router.Use(middleware.RequestID)
			router.Use(middleware.Recoverer)

			router.Group(func(r chi.Router) {
				app.membershipHandler.Routes(r)
				app.changeRequestHandler.Routes(r)
			})
			router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

			port := getEnv("PORT", "8080")
			log.WithField("port", port).Info("starting clubhouse service")
			if err := http.ListenAndServe(":"+port, router); err != nil {
				log.WithError(err).Fatal("server stopped")
			}
		},
	}

	cmd.Flags().DurationVar(&sweepInterval, "sweep-interval", 1*time.Hour, "How often approved, deferred change requests are re-evaluated")

	return cmd
}
