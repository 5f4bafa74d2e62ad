package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capgenie/capgenie/internal/api"
	"github.com/capgenie/capgenie/internal/config"
	"github.com/capgenie/capgenie/internal/logging"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project API on 127.0.0.1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			if cmd.Flags().Changed("port") {
				overrides[config.KeyPort] = port
			}
			a, err := newApp(overrides)
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.NewServer(api.ServerConfig{
				Port:      a.cfg.Port(),
				APIToken:  a.cfg.APIToken(),
				Projects:  a.service,
				Logger:    logging.WithComponent(a.logger, "api"),
				StartTime: time.Now(),
				Version:   config.Version,
			})
			if token := a.cfg.APIToken(); token != "" {
				a.logger.Info("bearer token required", "token", logging.SanitizeToken(token))
			}
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-server.Ready():
				fmt.Fprintf(cmd.OutOrStdout(), "capgenie API listening on http://%s\n", server.Addr())
			}

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			a.logger.Info("initiating graceful shutdown")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("failed to shutdown HTTP server", "error", err)
				return err
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "port to listen on")

	return cmd
}
