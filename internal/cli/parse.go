package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/nauticalab/pveconf/internal/config"
	"github.com/nauticalab/pveconf/internal/result"
)

// GuestOptions identifies one guest: either a complete params file, or flags
// plus a config input.
type GuestOptions struct {
	Input      InputOptions
	ParamsFile string
	VMID       int
	Node       string
	CloudInit  string
}

// ParseOptions holds configuration for the parse command
type ParseOptions struct {
	Guest  GuestOptions
	Output string
}

// ConvertOptions holds configuration for the convert command
type ConvertOptions struct {
	Input InputOptions
	// To is config, cli or map
	To string
	// Output is the structured format for the map form
	Output string
}

// loadParams builds unvalidated params; Assemble validates them.
func loadParams(ctx context.Context, opts GuestOptions) (result.Params, error) {
	if opts.ParamsFile != "" {
		if opts.Input.IsSet() {
			return result.Params{}, errors.New("--params already carries the config; drop the config input")
		}
		params, err := result.LoadParams(opts.ParamsFile)
		if err != nil {
			return result.Params{}, err
		}
		return *params, nil
	}

	text, _, err := ReadInput(ctx, opts.Input)
	if err != nil {
		return result.Params{}, err
	}
	params := result.NewParams()
	params.VMID = opts.VMID
	params.Node = opts.Node
	params.CloudInit = opts.CloudInit
	params.Config = text
	return params, nil
}

// RunParse assembles the result for one guest and writes it as YAML or JSON.
func RunParse(ctx context.Context, log logr.Logger, opts ParseOptions, out io.Writer) error {
	params, err := loadParams(ctx, opts.Guest)
	if err != nil {
		return err
	}
	res, err := result.Assemble(log, params)
	if err != nil {
		return err
	}
	return writeStructured(out, opts.Output, res)
}

// RunConvert re-renders a config in file, CLI or map form.
func RunConvert(ctx context.Context, opts ConvertOptions, out io.Writer) error {
	text, source, err := ReadInput(ctx, opts.Input)
	if err != nil {
		return err
	}
	doc, err := config.ParseDocument(text)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", source, err)
	}

	switch opts.To {
	case "", "config":
		_, err = fmt.Fprintln(out, doc.ConfigText())
	case "cli":
		_, err = fmt.Fprintln(out, doc.CLI())
	case "map":
		err = writeStructured(out, opts.Output, doc.Map())
	default:
		err = fmt.Errorf("unknown target %q, expected config, cli or map", opts.To)
	}
	return err
}
