package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/oukeidos/photomotion/internal/cleanup"
	"github.com/oukeidos/photomotion/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func execute() {
	runErr := newRootCmd().Execute()
	// Registered cleanups (log file, served session) run even when the command failed.
	cleanupErr := cleanup.RunAll()
	if cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
	}
	if runErr != nil || cleanupErr != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts animateOptions

	root := &cobra.Command{
		Use:          "photomotion",
		Short:        "Turn a still photo into a short video with Veo",
		Version:      version.Info(),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return animateByDefault(cmd, args, &opts)
	}
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetUsageTemplate(rootUsageTemplate)
	addAnimateFlags(root, &opts)

	root.AddCommand(
		newAnimateCmd(),
		newServeCmd(),
		newSuggestCmd(),
		newListCmd(),
		newEnvCmd(),
		newAboutCmd(),
		newDisclaimerCmd(),
		newLicensesCmd(),
	)
	addCompletionCmd(root)
	return root
}

// animateByDefault lets "photomotion photo.jpg" stand in for "photomotion animate photo.jpg".
func animateByDefault(cmd *cobra.Command, args []string, opts *animateOptions) error {
	if len(args) == 0 {
		set := changedFlags(cmd.Flags())
		if len(set) == 0 {
			return cmd.Help()
		}
		_ = cmd.Usage()
		return fmt.Errorf("a photo is required (flags set: %s)", strings.Join(set, ", "))
	}
	if sub, _, err := cmd.Find(args[:1]); err == nil && sub != cmd {
		_ = cmd.Usage()
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	return runAnimate(cmd, args, opts)
}

func changedFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.Visit(func(f *pflag.Flag) {
		names = append(names, "--"+f.Name)
	})
	return names
}

func addCompletionCmd(root *cobra.Command) {
	root.InitDefaultCompletionCmd()
	if c, _, err := root.Find([]string{"completion"}); err == nil && c != root {
		c.Short = "Print a shell completion script for photomotion"
		c.SetUsageTemplate(subcommandUsageTemplate)
	}
}
