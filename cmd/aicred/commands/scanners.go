package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/aicred/internal/config"
	"github.com/systmms/aicred/internal/discovery"
	"github.com/systmms/aicred/internal/scanners"
	"github.com/systmms/aicred/internal/validators"
)

func NewScannersCommand(cfg *config.Config) *cobra.Command {
	var (
		verbose bool
		home    string
	)

	cmd := &cobra.Command{
		Use:   "scanners",
		Short: "List application scanners",
		Long: `Display the application scanners in the order their results are merged.

With --verbose, also show which of each scanner's files exist under the
home directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := scanners.NewRegistry(scanners.WithLogger(cfg.Logger))
			out := cmd.OutOrStdout()

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "NAME\tAPPLICATION\n")
			for _, s := range registry.List() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", s.Name(), s.AppName())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !verbose {
				return nil
			}

			orch := discovery.New(validators.NewRegistry(), registry, discovery.WithLogger(cfg.Logger))
			return printPlan(out, orch, home)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the files each scanner would read")
	cmd.Flags().StringVar(&home, "home", "", "Directory to inspect with --verbose")

	return cmd
}
