package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/cli"
)

// errValidationFailed ends the process with status 1 after findings were printed.
var errValidationFailed = errors.New("validation failed")

var (
	validateConfigDir string
	validateCloudInit string
)

var validateCmd = &cobra.Command{
	Use:   "validate [file|-]",
	Short: "Check guest configs for structural problems",
	Long: `Validate one guest config or every *.conf file in a directory.

Checks for duplicate keys, disks without a volume, a missing root disk,
malformed lxc.idmap lines and cloud-init slot conflicts. With --config-dir,
volumes referenced by more than one guest are reported too.

Examples:
  pveconf validate 100.conf
  pveconf validate --config-dir /etc/pve/qemu-server --cloud-init local-lvm
  pveconf validate --from-configmap infra/guests:100.conf`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ValidateOptions{
			Input:     inputOptions(args),
			ConfigDir: validateConfigDir,
			CloudInit: stringFlag(cmd, "cloud-init", validateCloudInit, cliConfig.CloudInit),
			Verbose:   verbose,
		}
		result, err := cli.RunValidate(cmd.Context(), opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !result.IsValid {
			return errValidationFailed
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigDir, "config-dir", "", "Validate every *.conf file in this directory")
	validateCmd.Flags().StringVar(&validateCloudInit, "cloud-init", "", "Storage for the cloud-init drive (VMs)")
}
