package main

import (
	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/cli"
)

var (
	renderConfigDir  string
	renderOutputDir  string
	renderDryRun     bool
	renderProvenance bool
	renderWorkers    int
)

var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Generate provisioning scripts for guests",
	Long: `Render the qm/pct create script and the normalized config file for a guest
into <output-dir>/<vmid>/.

With --config-dir every <vmid>.conf in the directory is rendered in parallel;
the guest id is taken from the file name.

Examples:
  pveconf render 100.conf --vmid 100 --node pm1 --cloud-init local-lvm
  pveconf render --params guest.yaml --dry-run
  pveconf render --config-dir /etc/pve/qemu-server --node pm1 --provenance`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RenderOptions{
			Guest:      guestOptions(cmd, args),
			ConfigDir:  renderConfigDir,
			OutputDir:  renderOutputDir,
			DryRun:     renderDryRun,
			Provenance: renderProvenance,
			Verbose:    verbose,
			Workers:    renderWorkers,
		}
		if opts.ConfigDir != "" {
			return cli.RunRenderAll(cmd.Context(), logger, opts, cmd.OutOrStdout())
		}
		return cli.RunRender(cmd.Context(), logger, opts, cmd.OutOrStdout())
	},
}

func init() {
	addGuestFlags(renderCmd)
	renderCmd.Flags().StringVar(&renderConfigDir, "config-dir", "", "Render every <vmid>.conf in this directory")
	renderCmd.Flags().StringVar(&renderOutputDir, "output-dir", "./build", "Directory for generated files")
	renderCmd.Flags().BoolVar(&renderDryRun, "dry-run", false, "Show what would be generated without writing files")
	renderCmd.Flags().BoolVar(&renderProvenance, "provenance", false, "Record the git commit of the config file in the output")
	renderCmd.Flags().IntVar(&renderWorkers, "workers", 4, "Concurrent renders for --config-dir")
}
