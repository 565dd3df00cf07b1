package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/session-report/internal/server"
	"github.com/jonathan/session-report/internal/server/ratelimit"
)

var (
	serveAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes endpoints for triggering and polling session reports.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Auth.Check(); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.close()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer gen.Close()

	service := newService(st, gen)
	defer func() {
		log.Println("[serve] waiting for background generations...")
		_ = service.Close()
	}()

	srv, err := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      ratelimit.LoadConfig(os.LookupEnv, cfg.Server.RequestsPerMinute),
	}, server.Deps{
		Reports:  service,
		Sessions: st.sessions,
		Records:  st.records,
		JWT:      server.NewJWTService(&cfg.Auth),
		Ping:     st.ping,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Printf("[serve] store=%s provider=%s", st.kind, cfg.Generator.Provider)
	return srv.Start()
}
