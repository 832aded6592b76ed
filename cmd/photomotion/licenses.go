package main

import (
	"fmt"

	"github.com/oukeidos/photomotion/internal/licenses"
	"github.com/spf13/cobra"
)

func newLicensesCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "licenses",
		Short: "Show third-party license notices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				_, err := fmt.Fprint(cmd.OutOrStdout(), licenses.Summary())
				return err
			}
			text := licenses.NoticesText()
			if text == "" {
				return fmt.Errorf("embedded THIRD_PARTY_NOTICES is empty")
			}
			_, err := cmd.OutOrStdout().Write([]byte(text))
			return err
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().BoolVar(&short, "short", false, "Print a module/license table only")
	return cmd
}

func newDisclaimerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disclaimer",
		Short: "Show the full disclaimer",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := licenses.DisclaimerText()
			if text == "" {
				return fmt.Errorf("embedded DISCLAIMER is empty")
			}
			_, err := cmd.OutOrStdout().Write([]byte(text))
			return err
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
