package main

import (
	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/cli"
)

var (
	// Guest flags shared by parse and render
	guestVMID      int
	guestNode      string
	guestCloudInit string
	guestParams    string

	// Output format flag shared by parse and convert
	outputFormat string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Assemble provisioning data for one guest",
	Long: `Parse a guest config and print everything needed to create the guest:
the normalized config in file, CLI and map form, the root disk, disks and
ISOs, the cloud-init slot (VMs) or lxc.* extensions (containers).

Examples:
  pveconf parse 100.conf --vmid 100 --node pm1 --cloud-init local-lvm
  qm config 100 | pveconf parse - --vmid 100 --node pm1 -o json
  pveconf parse --params guest.yaml
  pveconf parse --from-configmap infra/guests:100.conf --vmid 100 --node pm1`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ParseOptions{
			Guest:  guestOptions(cmd, args),
			Output: stringFlag(cmd, "output", outputFormat, cliConfig.Output),
		}
		return cli.RunParse(cmd.Context(), logger, opts, cmd.OutOrStdout())
	},
}

func addGuestFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&guestVMID, "vmid", 0, "Guest id")
	cmd.Flags().StringVar(&guestNode, "node", "", "Proxmox node the guest lives on")
	cmd.Flags().StringVar(&guestCloudInit, "cloud-init", "", "Storage for the cloud-init drive (VMs)")
	cmd.Flags().StringVar(&guestParams, "params", "", "YAML/JSON params file carrying vmid, node, config and provisioning options")
}

func guestOptions(cmd *cobra.Command, args []string) cli.GuestOptions {
	return cli.GuestOptions{
		Input:      inputOptions(args),
		ParamsFile: guestParams,
		VMID:       guestVMID,
		Node:       stringFlag(cmd, "node", guestNode, cliConfig.Node),
		CloudInit:  stringFlag(cmd, "cloud-init", guestCloudInit, cliConfig.CloudInit),
	}
}

func init() {
	addGuestFlags(parseCmd)
	parseCmd.Flags().StringVarP(&outputFormat, "output", "o", cli.DefaultOutput, "Output format (yaml or json)")
}
