package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nauticalab/pveconf/internal/validation"
)

// ValidateOptions holds configuration for the validate command
type ValidateOptions struct {
	Input InputOptions
	// ConfigDir validates every *.conf in a directory instead of one input
	ConfigDir string
	CloudInit string
	Verbose   bool
}

// RunValidate lints one config or a directory of configs and prints the
// findings. The returned result tells the caller whether to fail.
func RunValidate(ctx context.Context, opts ValidateOptions, out io.Writer) (*validation.ValidationResult, error) {
	validator := validation.NewConfigValidator(opts.CloudInit)

	if opts.ConfigDir != "" {
		if opts.Input.IsSet() {
			return nil, fmt.Errorf("--config-dir cannot be combined with a config input")
		}
		fmt.Fprintf(out, "🔍 Validating guest configurations in %s...\n", opts.ConfigDir)
		result, err := validator.ValidateDir(opts.ConfigDir)
		if err != nil {
			return nil, err
		}
		printValidationResult(out, result, "", opts.Verbose)
		return result, nil
	}

	text, source, err := ReadInput(ctx, opts.Input)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "🔍 Validating configuration: %s\n", source)
	result := validator.Validate(text, source)
	printValidationResult(out, result, source, opts.Verbose)
	return result, nil
}

// printValidationResult prints the validation results in a user-friendly format
func printValidationResult(out io.Writer, result *validation.ValidationResult, target string, verbose bool) {
	// Print warnings first
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "⚠️  Warning: %s\n", warning.Message)
		if warning.FilePath != "" && verbose {
			fmt.Fprintf(out, "   File: %s\n", warning.FilePath)
		}
	}

	for _, err := range result.Errors {
		switch err.Type {
		case "volume_conflict":
			fmt.Fprintf(out, "❌ Volume Conflict: %s\n", err.Message)
			if verbose {
				fmt.Fprintf(out, "   Affected configs: %s\n", strings.Join(err.Files, ", "))
			}
		case "duplicate_key":
			fmt.Fprintf(out, "❌ Duplicate Key: %s\n", err.Message)
		case "no_root_disk":
			fmt.Fprintf(out, "❌ Missing Root Disk: %s\n", err.Message)
		case "cloud_init":
			fmt.Fprintf(out, "❌ Cloud-Init Slot: %s\n", err.Message)
		case "invalid":
			fmt.Fprintf(out, "❌ Configuration Error: %s\n", err.Message)
		default:
			fmt.Fprintf(out, "❌ Error: %s\n", err.Message)
		}
		if verbose && err.FilePath != "" {
			fmt.Fprintf(out, "   File: %s\n", err.FilePath)
		}
	}

	// Print summary
	subject := "All configurations are"
	if target != "" {
		subject = fmt.Sprintf("Configuration %s is", target)
	}
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Fprintf(out, "✅ %s valid!\n", subject)
	case result.IsValid:
		fmt.Fprintf(out, "✅ %s valid (%d warnings)\n", subject, len(result.Warnings))
	default:
		fmt.Fprintf(out, "❌ Validation failed with %d errors and %d warnings\n", len(result.Errors), len(result.Warnings))
		printSuggestions(out, result)
	}
}

func printSuggestions(out io.Writer, result *validation.ValidationResult) {
	seen := map[string]bool{}
	var tips []string
	for _, err := range result.Errors {
		if seen[err.Type] {
			continue
		}
		seen[err.Type] = true
		switch err.Type {
		case "volume_conflict":
			tips = append(tips, "Give every guest its own disk volumes (vm-<vmid>-disk-<n>)")
		case "no_root_disk":
			tips = append(tips, "Add a rootfs line (containers) or a disk named *-disk-0 (VMs)")
		case "cloud_init":
			tips = append(tips, "Drop the cloudinit drive from the config, the provisioner adds it")
		case "missing_volume":
			tips = append(tips, "Start every disk and mount point with its volume, e.g. local-lvm:vm-100-disk-1")
		}
	}
	if len(tips) == 0 {
		return
	}
	fmt.Fprintln(out, "\n💡 Suggestions:")
	for _, tip := range tips {
		fmt.Fprintf(out, "   • %s\n", tip)
	}
}
