// Command catalogsync mirrors a stock spreadsheet onto a merchant panel's
// catalog: it reads the newest sheet from a cloud folder, decides which items
// should be on sale and with what stock, and applies that through Chrome.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"catalogsync/internal/config"
	"catalogsync/internal/runner"
)

type options struct {
	configPath string
	envFile    string
	dryRun     bool
	login      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "catalogsync",
		Short: "Sync a stock spreadsheet onto the merchant panel catalog",
		Long: `catalogsync reads the most recent spreadsheet from the configured folder,
decides per item whether it should be on sale and with what quantity, and
applies those decisions on the merchant panel through a scripted Chrome.

Without flags it applies. --dry-run only prints the decisions; --login only
establishes the panel session.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, opts.mode())
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "catalogsync.yaml", "Config file (missing file means defaults)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before the config")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print decisions without touching the panel")
	root.Flags().BoolVar(&opts.login, "login", false, "Only sign in and save the panel session")
	root.MarkFlagsMutuallyExclusive("dry-run", "login")

	root.AddCommand(
		initCmd(opts),
		modeCmd(opts, "preview", "Print decisions without touching the panel", runner.ModePreview),
		modeCmd(opts, "login", "Sign in and save the panel session", runner.ModeAuthenticate),
		modeCmd(opts, "apply", "Apply decisions on the panel", runner.ModeApply),
	)
	return root
}

func modeCmd(opts *options, use, short string, mode runner.Mode) *cobra.Command {
	return &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, mode)
		},
	}
}

func initCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Write a starter config file with the defaults",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DefaultConfig().Save(opts.configPath, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

func (o *options) mode() runner.Mode {
	switch {
	case o.dryRun:
		return runner.ModePreview
	case o.login:
		return runner.ModeAuthenticate
	default:
		return runner.ModeApply
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
