package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nauticalab/pveconf/internal/k8s"
)

// ConfigMapReader fetches config text from a ConfigMap.
type ConfigMapReader interface {
	GetConfigText(ctx context.Context, ref k8s.ConfigMapRef) (string, error)
}

// InputOptions selects where config text is read from.
type InputOptions struct {
	// File is a path, or "-" for stdin
	File string
	// ConfigMap is "[namespace/]name[:key]"
	ConfigMap string
	// Stdin defaults to os.Stdin
	Stdin io.Reader
	// ConfigMaps defaults to a client built from the kubeconfig
	ConfigMaps ConfigMapReader
}

// IsSet reports whether any input source was given.
func (o InputOptions) IsSet() bool {
	return o.File != "" || o.ConfigMap != ""
}

// ReadInput returns the config text and a name for its source.
func ReadInput(ctx context.Context, opts InputOptions) (string, string, error) {
	switch {
	case opts.File != "" && opts.ConfigMap != "":
		return "", "", errors.New("a config file and --from-configmap are mutually exclusive")

	case opts.ConfigMap != "":
		ref, err := k8s.ParseConfigMapRef(opts.ConfigMap)
		if err != nil {
			return "", "", err
		}
		reader := opts.ConfigMaps
		if reader == nil {
			client, err := k8s.NewClient()
			if err != nil {
				return "", "", err
			}
			reader = client
		}
		text, err := reader.GetConfigText(ctx, ref)
		if err != nil {
			return "", "", err
		}
		return text, ref.String(), nil

	case opts.File == "-":
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "<stdin>", nil

	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return "", "", fmt.Errorf("failed to read config %s: %w", opts.File, err)
		}
		return string(data), opts.File, nil
	}
	return "", "", errors.New("no config given: pass a file, - for stdin, or --from-configmap")
}
