// Package validation provides structural checks for Proxmox guest configs.
// It reports duplicate keys, disks without volumes, missing root disks,
// cloud-init slot problems, and volumes shared between guests. Option values
// themselves are not checked.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/nauticalab/pveconf/internal/config"
)

// ConfigExtension is the file suffix of qm.conf / pct.conf files in a directory.
const ConfigExtension = ".conf"

// ConfigValidator checks guest configs
type ConfigValidator struct {
	// cloudInit is the storage for cloud-init images; empty skips slot checks
	cloudInit string
}

// ValidationResult contains all validation results
type ValidationResult struct {
	// Errors is a list of fatal validation errors
	Errors []ValidationError `json:"errors"`
	// Warnings is a list of non-fatal validation warnings
	Warnings []ValidationWarning `json:"warnings"`
	// IsValid indicates if the validation passed (no errors)
	IsValid bool `json:"valid"`
}

// ValidationError represents a validation failure
type ValidationError struct {
	// Type is the category of error (e.g., "duplicate_key", "no_root_disk", "invalid")
	Type string `json:"type"`
	// Keys are the config keys involved in the error (if applicable)
	Keys []string `json:"keys,omitempty"`
	// Files lists every config involved when the error spans guests
	Files []string `json:"files,omitempty"`
	// Message is a human-readable error description
	Message string `json:"message"`
	// FilePath is the path to the configuration file causing the error
	FilePath string `json:"file,omitempty"`
}

// ValidationWarning represents a non-fatal validation issue
type ValidationWarning struct {
	// Type is the category of warning
	Type string `json:"type"`
	// Key is the config key the warning is about (if applicable)
	Key string `json:"key,omitempty"`
	// Message is a human-readable warning description
	Message string `json:"message"`
	// FilePath is the path to the configuration file
	FilePath string `json:"file,omitempty"`
}

func (e ValidationError) Error() string {
	if e.FilePath == "" {
		return e.Message
	}
	return e.FilePath + ": " + e.Message
}

// NewConfigValidator creates a validator. cloudInit is the cloud-init storage
// the guests will be created with, or empty.
func NewConfigValidator(cloudInit string) *ConfigValidator {
	return &ConfigValidator{cloudInit: cloudInit}
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
		IsValid:  true,
	}
}

func (r *ValidationResult) addError(e ValidationError) {
	r.Errors = append(r.Errors, e)
	r.IsValid = false
}

// Err returns all errors as one aggregate, or nil when the result is valid.
func (r *ValidationResult) Err() error {
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return utilerrors.NewAggregate(errs)
}

// Validate checks a single config. filePath is only used in messages.
func (cv *ConfigValidator) Validate(raw, filePath string) *ValidationResult {
	result := newResult()
	cv.validateDocument(result, raw, filePath)
	return result
}

// validateDocument appends the findings for one config and returns the parsed
// document, or nil if it did not parse.
func (cv *ConfigValidator) validateDocument(result *ValidationResult, raw, filePath string) *config.Document {
	doc, err := config.ParseDocument(raw)
	if err != nil {
		result.addError(ValidationError{
			Type:     "invalid",
			Message:  fmt.Sprintf("Failed to parse config: %v", err),
			FilePath: filePath,
		})
		return nil
	}

	for _, key := range duplicateKeys(doc) {
		result.addError(ValidationError{
			Type:     "duplicate_key",
			Keys:     []string{key},
			Message:  fmt.Sprintf("Key %s is set more than once", key),
			FilePath: filePath,
		})
	}

	for _, opt := range doc.Options() {
		switch opt.Category() {
		case config.CategoryDisk, config.CategoryRootFilesystem, config.CategoryMountPoint:
		default:
			continue
		}
		if !hasVolume(opt) {
			result.addError(ValidationError{
				Type:     "missing_volume",
				Keys:     []string{opt.Key()},
				Message:  fmt.Sprintf("%s has no file or volume", opt.Key()),
				FilePath: filePath,
			})
		}
	}

	if _, err := doc.RootDisk(); err != nil {
		result.addError(ValidationError{
			Type:     "no_root_disk",
			Message:  "No root disk: expected a rootfs line or a volume named *-disk-0",
			FilePath: filePath,
		})
	}

	if _, err := doc.Extensions(); err != nil {
		result.addError(ValidationError{
			Type:     "invalid_extension",
			Keys:     []string{"lxc.idmap"},
			Message:  err.Error(),
			FilePath: filePath,
		})
	}

	// Containers have no cloud-init drive.
	if doc.Flavor() == config.FlavorVM {
		if _, err := doc.CloudInitSlot(cv.cloudInit); err != nil {
			result.addError(ValidationError{
				Type:     "cloud_init",
				Message:  err.Error(),
				FilePath: filePath,
			})
		}
	}

	cv.addWarnings(result, doc, filePath)
	return doc
}

func (cv *ConfigValidator) addWarnings(result *ValidationResult, doc *config.Document, filePath string) {
	comments := 0
	containerKeys := sets.New[string]()
	vmDisks := sets.New[string]()
	for _, opt := range doc.Options() {
		switch opt.Category() {
		case config.CategoryComment:
			comments++
		case config.CategoryRootFilesystem, config.CategoryMountPoint, config.CategoryExtension:
			containerKeys.Insert(opt.Key())
		case config.CategoryDisk:
			vmDisks.Insert(opt.Key())
		}
	}

	if comments > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Type:     "cli_comment",
			Message:  fmt.Sprintf("%d comment line(s) will be dropped from the CLI form", comments),
			FilePath: filePath,
		})
	}

	if containerKeys.Len() > 0 && vmDisks.Len() > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Type: "mixed_flavor",
			Key:  sets.List(vmDisks)[0],
			Message: fmt.Sprintf("Container keys (%s) are mixed with VM disks (%s)",
				strings.Join(sets.List(containerKeys), ", "), strings.Join(sets.List(vmDisks), ", ")),
			FilePath: filePath,
		})
	}
}

// ValidateDir checks every *.conf file in dir and reports volumes referenced
// by more than one guest.
func (cv *ConfigValidator) ValidateDir(dir string) (*ValidationResult, error) {
	result := newResult()

	files, err := findConfigFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan config directory %s: %w", dir, err)
	}
	if len(files) == 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Type:    "no_configs",
			Message: fmt.Sprintf("No guest configurations found in %s", dir),
		})
		return result, nil
	}

	// volume -> files that reference it
	volumes := make(map[string][]string)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			result.addError(ValidationError{
				Type:     "invalid",
				Message:  fmt.Sprintf("Failed to read config: %v", err),
				FilePath: path,
			})
			continue
		}

		doc := cv.validateDocument(result, string(data), path)
		if doc == nil {
			continue
		}
		for _, volume := range sets.List(guestVolumes(doc)) {
			volumes[volume] = append(volumes[volume], path)
		}
	}

	for _, volume := range sets.List(sets.KeySet(volumes)) {
		paths := volumes[volume]
		if len(paths) < 2 {
			continue
		}
		result.addError(ValidationError{
			Type:    "volume_conflict",
			Files:   paths,
			Message: fmt.Sprintf("Volume %s is used by multiple guests: %s", volume, strings.Join(paths, ", ")),
		})
	}

	return result, nil
}

// duplicateKeys returns keys set more than once, ignoring comments and the
// repeatable lxc.* extension keys.
func duplicateKeys(doc *config.Document) []string {
	seen := sets.New[string]()
	dupes := sets.New[string]()
	for _, opt := range doc.Options() {
		if opt.IsComment() || opt.Category() == config.CategoryExtension {
			continue
		}
		if seen.Has(opt.Key()) {
			dupes.Insert(opt.Key())
		}
		seen.Insert(opt.Key())
	}
	return sets.List(dupes)
}

// hasVolume reports whether a storage line names its volume. An elided key
// that swallowed another option ("file=cache=none") does not count.
func hasVolume(opt config.ConfigOption) bool {
	for _, key := range []string{"file", "volume"} {
		if p, ok := opt.Option(key); ok {
			v := p.Value().String()
			return v != "" && !strings.Contains(v, "=")
		}
	}
	return false
}

// guestVolumes returns the storage-backed volumes of a guest. Pass-through
// devices, empty drives and ISOs can be shared and are skipped.
func guestVolumes(doc *config.Document) sets.Set[string] {
	volumes := sets.New[string]()
	for _, disk := range doc.Disks() {
		if disk.Storage == "" {
			continue
		}
		volumes.Insert(disk.File)
	}
	return volumes
}

func findConfigFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ConfigExtension {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(files)
	return files, nil
}

