package main

import (
	"log/slog"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/cli"
)

var (
	// Global flags (available to all commands)
	verbose       bool
	fromConfigMap string

	// Loaded before any subcommand runs
	cliConfig *cli.CLIConfig
	logger    logr.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pveconf",
	Short: "Parse and convert Proxmox VE guest configurations",
	Long: `pveconf reads Proxmox VE guest configurations, either qm.conf / pct.conf
files or the equivalent "qm create" / "pct create" flags, and turns them into
provisioning data.

It fills in the option keys Proxmox lets you leave out, converts between the
config file and command line forms, finds the root disk and a free cloud-init
slot, and collects lxc.* extension lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = logr.FromSlogHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		cfg, err := cli.LoadCLIConfig()
		if err != nil {
			return err
		}
		cliConfig = cfg
		return nil
	},
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&fromConfigMap, "from-configmap", "", "Read the config from a Kubernetes ConfigMap ([namespace/]name[:key])")

	// Add subcommands to root
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// inputOptions maps the optional [file|-] argument and --from-configmap.
func inputOptions(args []string) cli.InputOptions {
	opts := cli.InputOptions{ConfigMap: fromConfigMap}
	if len(args) > 0 {
		opts.File = args[0]
	}
	return opts
}

// stringFlag returns the flag value when set on the command line, else the
// CLI config default.
func stringFlag(cmd *cobra.Command, name, value, fallback string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	return fallback
}
