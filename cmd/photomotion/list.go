package main

import (
	"fmt"
	"strings"

	"github.com/oukeidos/photomotion/internal/metadata"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported video and prompt models",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Video Models:")
			for _, m := range metadata.VeoModels {
				fmt.Fprintf(out, "  %-32s %-24s [%s] ~$%.2f/clip\n", m.ID, m.Label, strings.Join(m.Resolutions, ", "), m.EstimatedCost())
			}
			fmt.Fprintln(out, "Prompt Suggestion Models:")
			for _, m := range metadata.GeminiModels {
				fmt.Fprintf(out, "  %-32s %s\n", m.ID, m.Label)
			}
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
