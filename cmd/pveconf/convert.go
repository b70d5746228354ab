package main

import (
	"github.com/spf13/cobra"

	"github.com/nauticalab/pveconf/internal/cli"
)

var convertTo string

var convertCmd = &cobra.Command{
	Use:   "convert [file|-]",
	Short: "Convert a config between file, CLI and map form",
	Long: `Convert a guest config. Elided option keys are filled in, so the output
is the explicit form of the input.

Examples:
  pveconf convert 100.conf --to cli
  echo "qm create 100 --scsi0 local-lvm:vm-100-disk-0 --memory 2048" | pveconf convert -
  pveconf convert 100.conf --to map -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ConvertOptions{
			Input:  inputOptions(args),
			To:     convertTo,
			Output: stringFlag(cmd, "output", outputFormat, cliConfig.Output),
		}
		return cli.RunConvert(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", "config", "Target form: config, cli or map")
	convertCmd.Flags().StringVarP(&outputFormat, "output", "o", cli.DefaultOutput, "Output format of the map form (yaml or json)")
}
