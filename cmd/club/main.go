// cmd/club/main.go
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ServiceName is reported to tracing and logging backends.
const ServiceName = "clubhouse"

var rootCmd = &cobra.Command{
	Use:   "club",
	Short: "Club membership change-request and reactivation engine",
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
