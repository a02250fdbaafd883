package cmd

import (
	"time"

	"slawatch/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var (
		statusPort     int
		checkInterval  time.Duration
		popTimeout     time.Duration
		maxRetries     int
		retryBaseDelay time.Duration
		retryMaxDelay  time.Duration
		backoffPolicy  string
	)

	var command = &cobra.Command{
		Use:   "worker",
		Short: "Start the SLA breach worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			return worker.Run(worker.Options{
				StatusPort: statusPort,
				Config: worker.Config{
					CheckInterval:  checkInterval,
					PopTimeout:     popTimeout,
					MaxRetries:     maxRetries,
					RetryBaseDelay: retryBaseDelay,
					RetryMaxDelay:  retryMaxDelay,
					BackoffPolicy:  backoffPolicy,
				},
			})
		},
	}

	command.Flags().IntVar(&statusPort, "status-port", 8081, "Port for the worker status endpoint")
	command.Flags().DurationVar(&checkInterval, "check-interval", 15*time.Minute, "How often a breach scan is enqueued")
	command.Flags().DurationVar(&popTimeout, "pop-timeout", 10*time.Second, "Blocking pop timeout")
	command.Flags().IntVar(&maxRetries, "max-retries", 3, "Requeue attempts before a job is dropped")
	command.Flags().DurationVar(&retryBaseDelay, "retry-base-delay", 5*time.Second, "Base retry delay")
	command.Flags().DurationVar(&retryMaxDelay, "retry-max-delay", 5*time.Minute, "Retry delay cap")
	command.Flags().StringVar(&backoffPolicy, "backoff-policy", worker.PolicyLinear, "Retry backoff policy (linear or exponential)")

	return command
}
