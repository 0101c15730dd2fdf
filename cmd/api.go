package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/woodtrack/services/production/internal/api"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for the production board, delivery groups and account management`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := setupApp()
	if err != nil {
		return err
	}
	defer app.close()

	server := api.NewServer(app.cfg, api.Dependencies{
		Lifecycle:    app.lifecycle,
		Groups:       app.groupSvc,
		Notes:        app.notes,
		Provider:     app.provider,
		Provisioning: app.provisioning,
		Intake:       app.intake,
		Clients:      app.clients,
		Products:     app.products,
		Orders:       app.orders,
		Lines:        app.lines,
		Search:       app.elastic,
		Metrics:      app.metrics,
		Tracer:       app.tracer,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
