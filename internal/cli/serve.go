package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/artifacts"
	"github.com/ezoic/carbonml/internal/scoring"
	"github.com/ezoic/carbonml/internal/server"
	"github.com/ezoic/carbonml/internal/training"
	"github.com/ezoic/carbonml/pkg/log"
)

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			store := artifacts.NewStore(a.cfg.Models.Dir)
			scorer, err := scoring.Load(store, a.cfg.Data.EncodersPath)
			if err != nil {
				return err
			}

			opts := []server.Option{}
			var report training.Report
			if err := store.ReadJSON(artifacts.TrainingReportFile, &report); err != nil {
				log.GetLoggerWithName("cli").Warn("Training report unavailable", log.ErrorKey, err)
			} else {
				opts = append(opts, server.WithReport(&report))
			}

			gin.SetMode(a.cfg.Server.Mode)
			return server.New(scorer, opts...).Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
