// Package templates renders provisioning scripts and canonical config files
// from an assembled result.
package templates

import (
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/nauticalab/pveconf/internal/config"
	"github.com/nauticalab/pveconf/internal/git"
	"github.com/nauticalab/pveconf/internal/result"
)

// Embed all templates at compile time
//
//go:embed *.tmpl
var templates embed.FS

const (
	TemplateQMCreate  = "qm-create.sh"
	TemplatePCTCreate = "pct-create.sh"
	TemplateConfig    = "config.conf"
)

// RenderData is the template context: the result plus where its config came
// from.
type RenderData struct {
	*result.Result
	// Provenance is optional
	Provenance *git.Provenance
}

// Flags returns the CLI flags of the config, without lxc.* keys which the
// pct/qm tools do not accept.
func (d RenderData) Flags() []string {
	flags := make([]string, 0, len(d.CLIList))
	for _, flag := range d.CLIList {
		if strings.HasPrefix(flag, "--lxc") {
			continue
		}
		flags = append(flags, flag)
	}
	return flags
}

// ExtensionLines returns the lxc.* lines as "key: value" config text.
func (d RenderData) ExtensionLines() []string {
	if d.LXC == nil {
		return nil
	}
	var lines []string
	for _, key := range d.LXC.Keys {
		for _, value := range d.LXC.Values[key] {
			lines = append(lines, key+": "+value)
		}
	}
	return lines
}

var templateFuncs = template.FuncMap{
	"shellQuote": shellQuote,
	"flagArgs":   flagArgs,
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// shellQuote wraps s in single quotes unless it is made only of characters
// the shell leaves alone.
func shellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// flagArgs quotes the value of a "--key value" flag.
func flagArgs(flag string) string {
	name, value, ok := strings.Cut(flag, " ")
	if !ok {
		return flag
	}
	return name + " " + shellQuote(value)
}

// TemplatesFor returns the templates rendered for a guest flavor.
func TemplatesFor(flavor config.Flavor) []string {
	if flavor == config.FlavorContainer {
		return []string{TemplatePCTCreate, TemplateConfig}
	}
	return []string{TemplateQMCreate, TemplateConfig}
}

// Renderer handles template operations
type Renderer struct {
	outputDir string
}

// NewRenderer creates a new template renderer
func NewRenderer(outputDir string) *Renderer {
	return &Renderer{
		outputDir: outputDir,
	}
}

// Render executes one embedded template into w.
func Render(w io.Writer, templateName string, data RenderData) error {
	if data.Result == nil {
		return fmt.Errorf("cannot render template %s without a result", templateName)
	}

	// Read from embedded filesystem
	templateContent, err := templates.ReadFile(templateName + ".tmpl")
	if err != nil {
		return fmt.Errorf("unknown template %s: %w", templateName, err)
	}

	tmpl, err := template.New(templateName).Funcs(templateFuncs).Option("missingkey=error").Parse(string(templateContent))
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", templateName, err)
	}
	return nil
}

// RenderTemplate renders one template into the output directory and returns
// the written path. Scripts are made executable.
func (r *Renderer) RenderTemplate(templateName string, data RenderData) (string, error) {
	if data.Result == nil {
		return "", fmt.Errorf("cannot render template %s without a result", templateName)
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", r.outputDir, err)
	}

	outputPath := filepath.Join(r.outputDir, OutputName(templateName, data.VMID))
	mode := os.FileMode(0o644)
	if strings.HasSuffix(templateName, ".sh") {
		mode = 0o755
	}

	outputFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return "", fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	defer outputFile.Close()

	if err := Render(outputFile, templateName, data); err != nil {
		return "", err
	}
	return outputPath, nil
}

// RenderAll renders the script and config file for the result's flavor.
func (r *Renderer) RenderAll(data RenderData) ([]string, error) {
	if data.Result == nil {
		return nil, fmt.Errorf("cannot render without a result")
	}
	var paths []string
	for _, name := range TemplatesFor(data.Flavor) {
		path, err := r.RenderTemplate(name, data)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// OutputName is the file a template renders to. The config file is named
// after the guest id, as in /etc/pve.
func OutputName(templateName string, vmid int) string {
	if templateName == TemplateConfig {
		return fmt.Sprintf("%d.conf", vmid)
	}
	return templateName
}
