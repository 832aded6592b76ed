package main

import (
	"fmt"
	"strings"

	"github.com/oukeidos/photomotion/internal/auth"
	"github.com/oukeidos/photomotion/internal/prompt"
	"github.com/spf13/cobra"
)

var (
	saveKey       = auth.SaveKey
	deleteKey     = auth.DeleteKey
	confirmAction = func(question string, assumeYes bool) (bool, error) {
		return prompt.DefaultConfirmer().Confirm(question, assumeYes)
	}
)

type envOptions struct {
	yes bool
}

func newEnvCmd() *cobra.Command {
	opts := envOptions{}
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the Gemini API key in OS Keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}

	cmd.SetUsageTemplate(envUsageTemplate)

	cmd.AddCommand(
		newEnvSetupCmd(),
		newEnvDeleteCmd(&opts),
		newEnvStatusCmd(),
	)
	return cmd
}

func newEnvSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Save API key to keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvDeleteCmd(opts *envOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete key from keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvDelete(cmd, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Delete without asking")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func newEnvStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show key status (default if no action given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}

func runEnvSetup(cmd *cobra.Command) error {
	promptKey, err := promptForKey("Gemini API Key (paid Google Cloud project): ")
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	key := strings.TrimSpace(promptKey)
	if key == "" {
		return fmt.Errorf("API key is required for setup")
	}
	if err := saveKey(key); err != nil {
		return fmt.Errorf("error saving key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Saved Gemini API key to keychain.")
	return nil
}

func runEnvDelete(cmd *cobra.Command, opts *envOptions) error {
	ok, err := confirmAction("Delete the Gemini API key from the keychain?", opts.yes)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	if err := deleteKey(); err != nil {
		return fmt.Errorf("error deleting key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted Gemini API key from keychain.")
	return nil
}

func runEnvStatus(cmd *cobra.Command) error {
	if getStatus() {
		fmt.Fprintln(cmd.OutOrStdout(), "Gemini API Key: Found (source=Keychain)")
		return nil
	}
	if envKey, ok := getEnvKey(); ok && envKey != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Gemini API Key: Found (source=Environment Variable; disabled by default, use --allow-env)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Gemini API Key: Not Found (keychain empty, env not set)")
	return nil
}
