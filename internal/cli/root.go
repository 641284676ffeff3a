// Package cli implements the carbonml command line.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/ezoic/carbonml/internal/config"
	"github.com/ezoic/carbonml/internal/training"
	"github.com/ezoic/carbonml/pkg/log"
)

type app struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
	out      io.Writer

	// candidates overrides training.DefaultCandidates when set.
	candidates []training.Candidate
}

// NewRootCommand builds the carbonml command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	return newRootCommand(&app{out: out})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "carbonml",
		Short:         "Carbon emission estimates from lifestyle survey answers",
		Long:          `carbonml cleans the lifestyle survey, trains emission regressors and an emitter segmentation, and scores new answers from the CLI or over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./carbonml.yaml or ~/.carbonml/carbonml.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		a.cleanCommand(),
		a.trainCommand(),
		a.predictCommand(),
		a.serveCommand(),
		a.runsCommand(),
	)
	return root
}

func (a *app) setup() error {
	c, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		c.Log.Level = a.logLevel
	}
	if err := log.Setup(c.LogConfig()); err != nil {
		return err
	}
	a.cfg = c
	return nil
}

// Execute runs the command line with args.
func Execute(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
