package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/aicred/internal/config"
	"github.com/systmms/aicred/internal/validators"
)

func NewProvidersCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List supported AI providers",
		Long: `Display the built-in provider validators in the order they are consulted.
When two validators score a value equally, the one listed first wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := validators.NewRegistry()
			out := cmd.OutOrStdout()

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			if verbose {
				_, _ = fmt.Fprintf(w, "NAME\tPROVIDER\tDISPLAY NAME\tKEY PREFIX\tPROBE\tBASE URL\n")
			} else {
				_, _ = fmt.Fprintf(w, "NAME\tPROVIDER\tDISPLAY NAME\n")
			}
			for _, v := range registry.List() {
				info, _ := validators.InfoFor(v)
				if !verbose {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name(), v.ProviderID(), info.DisplayName)
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", v.Name(), v.ProviderID(), info.DisplayName,
					orDash(info.KeyPrefix), info.Probe, orDash(info.BaseURL))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			cfg.Logger.Debug("%d providers registered", registry.Len())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show key prefixes, probe styles and endpoints")

	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
