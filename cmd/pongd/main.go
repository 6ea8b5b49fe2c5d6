// Package main provides the CLI entry point for the pongd responder.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tinmesh/pongd/internal/config"
	"github.com/tinmesh/pongd/internal/health"
	"github.com/tinmesh/pongd/internal/logging"
	"github.com/tinmesh/pongd/internal/metrics"
	"github.com/tinmesh/pongd/internal/responder"
	"github.com/tinmesh/pongd/internal/wizard"
)

var (
	// Version is set at build time
	Version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pongd",
		Short: "pongd - Passive 2ping responder",
		Long: `pongd is a passive responder for the 2ping wire protocol.

It listens on a UDP socket, validates incoming 2ping datagrams, and
answers each reply-requesting packet with a checksummed reply carrying
a fresh message identifier and the original identifier in the
In-Reply-To block.`,
		Version: Version,
	}

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the responder",
		Long:  "Start the responder with the specified configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
			m := metrics.Default()

			r, err := responder.New(cfg, logger, m)
			if err != nil {
				return fmt.Errorf("failed to create responder: %w", err)
			}

			// Optional status server
			var statusServer *health.Server
			if cfg.Health.Enabled {
				statusServer = health.NewServer(health.ServerConfig{
					Address:      cfg.Health.Address,
					ReadTimeout:  cfg.Health.ReadTimeout,
					WriteTimeout: cfg.Health.WriteTimeout,
				}, r)
				if err := statusServer.Start(); err != nil {
					r.Close()
					return fmt.Errorf("failed to start status server: %w", err)
				}
			}

			stats := r.Stats()
			fmt.Printf("Starting pongd responder...\n")
			fmt.Printf("Listening on %s/%s\n", cfg.Network(), stats.ListenAddr)
			fmt.Printf("Banner: %s\n", stats.Banner)
			fmt.Printf("Entropy source: %s\n", stats.EntropySource)
			if statusServer != nil {
				fmt.Printf("Status endpoint: http://%s/status\n", cfg.Health.Address)
			}

			// Run until a shutdown signal arrives
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runErr := r.Run(ctx)

			fmt.Printf("\nShutting down...\n")

			if statusServer != nil {
				if err := statusServer.Stop(); err != nil {
					fmt.Printf("Status server shutdown error: %v\n", err)
				}
			}

			final := r.Stats()
			fmt.Printf("Responder stopped after %s: %s received, %s replied.\n",
				time.Since(final.Started).Round(time.Second),
				humanize.Comma(int64(final.Received)),
				humanize.Comma(int64(final.Replied)))

			return runErr
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	return cmd
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long:  "Generate a configuration file through an interactive wizard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("setup requires an interactive terminal")
			}

			w := wizard.New()
			if _, err := w.Run(); err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long:  "Load the configuration file and report any errors.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			fmt.Printf("Configuration OK.\n")
			fmt.Printf("  Listener:  %s/%s\n", cfg.Network(), cfg.ListenAddr())
			fmt.Printf("  Banner:    %s\n", cfg.Responder.Banner)
			if cfg.Limits.ReplyRate > 0 {
				fmt.Printf("  Rate:      %.1f replies/s per peer\n", cfg.Limits.ReplyRate)
			}
			if cfg.Health.Enabled {
				fmt.Printf("  Status:    %s\n", cfg.Health.Address)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")

	return cmd
}
