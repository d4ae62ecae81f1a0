package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/hcpdash/internal/server"
)

var (
	serveAddr   string
	serveSchema string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the password-gated dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			c.ListenAddr = serveAddr
		}
		if serveSchema != "" {
			if err := c.Set("schema", serveSchema); err != nil {
				return err
			}
		}
		if c.Password == "test123" {
			log.Warn().Msg("using the default dashboard password; set HCPDASH_PASSWORD")
		}

		srv, err := server.New(server.OptionsFromConfig(c))
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, c.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().StringVar(&serveSchema, "schema", "", "default schema for new sessions: normalized | provider")
}
