package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/woodtrack/services/production/internal/messaging"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to consume intake messages and realign diverged delivery groups`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := setupApp()
	if err != nil {
		return err
	}
	defer app.close()

	g, ctx := errgroup.WithContext(ctx)

	// Intake consumer
	g.Go(func() error {
		receiver, err := messaging.NewReceiver(app.cfg.Azure)
		if err != nil {
			return err
		}
		defer receiver.Close()

		processor := messaging.NewProcessor(app.intake)
		err = receiver.Run(ctx, processor)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	// Group reconciliation, catching groups left diverged by partial updates
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(func() {
				repaired, err := app.groupSvc.Reconcile(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to reconcile groups")
					return
				}
				if repaired > 0 {
					log.Info().Int("repaired", repaired).Msg("Realigned diverged groups")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
