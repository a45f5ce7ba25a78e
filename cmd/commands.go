package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/mindfeed-backend/internal/app"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mindfeed",
		Short: "Topic-aware content feed backend",
		Long: `mindfeed extracts a topic from each chat message and keeps a feed of
videos, articles and quotes generated for that topic.

Every role reads the same environment. Without REDIS_ADDR the store and the
generation queue are in-process, so only "all" produces a working deployment.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runRole((*app.App).Serve),
	}

	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Consume generation units from the queue",
		RunE:  runRole((*app.App).RunWorker),
	}

	schedulerCmd = &cobra.Command{
		Use:   "scheduler",
		Short: "Run popular-topic refresh, daily prewarm and eviction jobs",
		RunE:  runRole((*app.App).RunScheduler),
	}

	runJobCmd = &cobra.Command{
		Use:   "run-job [name]",
		Short: "Run one maintenance job immediately and exit",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	allCmd = &cobra.Command{
		Use:   "all",
		Short: "Run API, worker and scheduler in one process",
		RunE:  runRole((*app.App).RunAll),
	}
)

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, schedulerCmd, runJobCmd, allCmd)
}

func runRole(role func(*app.App, context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return role(a, cmd.Context())
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ran, err := a.Services.Scheduler.RunOnce(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ran {
		cmd.Println("job skipped: another process holds the lock")
	}
	return nil
}
