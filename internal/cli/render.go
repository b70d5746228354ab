package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/nauticalab/pveconf/internal/git"
	"github.com/nauticalab/pveconf/internal/result"
	"github.com/nauticalab/pveconf/internal/templates"
	"github.com/nauticalab/pveconf/internal/validation"
)

// defaultWorkers is the batch render concurrency.
const defaultWorkers = 4

// RenderOptions holds configuration for the render command
type RenderOptions struct {
	Guest GuestOptions
	// ConfigDir renders every <vmid>.conf in a directory
	ConfigDir string
	OutputDir string
	DryRun    bool
	// Provenance adds the git state of the config file to the output
	Provenance bool
	Verbose    bool
	Workers    int
}

// renderJob represents work to be done for one config file
type renderJob struct {
	Path string
}

// renderOutcome represents the outcome of rendering one config file
type renderOutcome struct {
	Path     string
	Files    []string
	Error    error
	Duration time.Duration
}

// RunRender renders the provisioning script and config file for one guest
// into <output>/<vmid>/.
func RunRender(ctx context.Context, log logr.Logger, opts RenderOptions, out io.Writer) error {
	params, err := loadParams(ctx, opts.Guest)
	if err != nil {
		return err
	}
	// A params file carries the config, so it is the provenance source.
	configPath := opts.Guest.ParamsFile
	if configPath == "" && opts.Guest.Input.File != "-" {
		configPath = opts.Guest.Input.File
	}

	files, err := renderGuest(log, params, configPath, opts)
	if err != nil {
		return err
	}
	for _, file := range files {
		if opts.DryRun {
			fmt.Fprintf(out, "🔍 Dry run - would generate %s\n", file)
			continue
		}
		fmt.Fprintf(out, "✅ Generated %s\n", file)
	}
	return nil
}

// RunRenderAll renders every <vmid>.conf in opts.ConfigDir with a pool of
// workers. All configs share the node and cloud-init storage of opts.Guest.
func RunRenderAll(ctx context.Context, log logr.Logger, opts RenderOptions, out io.Writer) error {
	paths, err := filepath.Glob(filepath.Join(opts.ConfigDir, "*"+validation.ConfigExtension))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", opts.ConfigDir, err)
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		fmt.Fprintf(out, "No guest configurations found in %s\n", opts.ConfigDir)
		return nil
	}
	fmt.Fprintf(out, "Found %d guest configurations to render.\n", len(paths))

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	jobs := make(chan renderJob, len(paths))
	outcomes := make(chan renderOutcome, len(paths))

	for i := 0; i < numWorkers; i++ {
		go renderWorker(ctx, log, jobs, outcomes, opts)
	}
	for _, path := range paths {
		jobs <- renderJob{Path: path}
	}
	close(jobs)

	var failures []renderOutcome
	for i := range paths {
		outcome := <-outcomes
		name := filepath.Base(outcome.Path)
		if outcome.Error != nil {
			failures = append(failures, outcome)
			fmt.Fprintf(out, "[%d/%d] ❌ %s (%.1fs): %v\n", i+1, len(paths), name, outcome.Duration.Seconds(), outcome.Error)
			continue
		}
		fmt.Fprintf(out, "[%d/%d] ✅ %s (%.1fs)\n", i+1, len(paths), name, outcome.Duration.Seconds())
		if opts.Verbose {
			for _, file := range outcome.Files {
				fmt.Fprintf(out, "   %s\n", file)
			}
		}
	}

	fmt.Fprintf(out, "\n🎉 Batch render complete!\n")
	fmt.Fprintf(out, "✅ Successful: %d\n", len(paths)-len(failures))
	if len(failures) == 0 {
		return nil
	}

	fmt.Fprintf(out, "❌ Failed: %d\n\nFailures:\n", len(failures))
	slices.SortFunc(failures, func(a, b renderOutcome) int { return strings.Compare(a.Path, b.Path) })
	for _, failure := range failures {
		fmt.Fprintf(out, "  - %s: %v\n", filepath.Base(failure.Path), failure.Error)
	}
	return fmt.Errorf("%d of %d configurations failed to render", len(failures), len(paths))
}

func renderWorker(ctx context.Context, log logr.Logger, jobs <-chan renderJob, outcomes chan<- renderOutcome, opts RenderOptions) {
	for job := range jobs {
		start := time.Now()
		files, err := renderFile(ctx, log, job.Path, opts)
		outcomes <- renderOutcome{
			Path:     job.Path,
			Files:    files,
			Error:    err,
			Duration: time.Since(start),
		}
	}
}

// renderFile renders one config of a batch; the file name is the guest id.
func renderFile(ctx context.Context, log logr.Logger, path string, opts RenderOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vmid, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(path), validation.ConfigExtension))
	if err != nil {
		return nil, fmt.Errorf("file name is not a guest id")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	params := result.NewParams()
	params.VMID = vmid
	params.Node = opts.Guest.Node
	params.CloudInit = opts.Guest.CloudInit
	params.Config = string(data)
	return renderGuest(log, params, path, opts)
}

// renderGuest assembles one guest and renders its templates. configPath is
// used for provenance and may be empty.
func renderGuest(log logr.Logger, params result.Params, configPath string, opts RenderOptions) ([]string, error) {
	res, err := result.Assemble(log, params)
	if err != nil {
		return nil, err
	}

	data := templates.RenderData{Result: res}
	if opts.Provenance && configPath != "" {
		prov, err := git.GetProvenance(configPath)
		if err != nil {
			log.V(1).Info("no provenance for config", "path", configPath, "reason", err.Error())
		} else {
			data.Provenance = prov
		}
	}

	outputDir := filepath.Join(opts.OutputDir, strconv.Itoa(res.VMID))
	if opts.DryRun {
		var files []string
		for _, name := range templates.TemplatesFor(res.Flavor) {
			files = append(files, filepath.Join(outputDir, templates.OutputName(name, res.VMID)))
		}
		return files, nil
	}
	return templates.NewRenderer(outputDir).RenderAll(data)
}
