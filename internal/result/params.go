package result

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Package-level validator used by Params.Validate.
var validate *validator.Validate

// storageIDRegex matches Proxmox storage identifiers such as "local-lvm" or "ceph_pool.1".
var storageIDRegex = regexp.MustCompile(`^[a-z][a-z0-9\-_.]*[a-z0-9]$`)

// fileNameRegex matches a bare image file name on Proxmox storage, e.g.
// "debian-12-standard_12.2-1_amd64.tar.zst". No path separators.
var fileNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+~-]*$`)

// checksumAlgorithms are the digests Proxmox accepts for template downloads.
var checksumAlgorithms = map[string]bool{
	"md5":    true,
	"sha1":   true,
	"sha224": true,
	"sha256": true,
	"sha384": true,
	"sha512": true,
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their parameter names ("cloud_init", not "CloudInit").
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := validate.RegisterValidation("pve_storage", validateStorageID); err != nil {
		panic(fmt.Errorf("register validator pve_storage: %w", err))
	}
	if err := validate.RegisterValidation("pve_filename", validateFileName); err != nil {
		panic(fmt.Errorf("register validator pve_filename: %w", err))
	}
	if err := validate.RegisterValidation("checksum_algorithm", validateChecksumAlgorithm); err != nil {
		panic(fmt.Errorf("register validator checksum_algorithm: %w", err))
	}
}

// Template is the image a guest is created from.
type Template struct {
	URL       string `yaml:"url" json:"url" validate:"required,url|pve_filename"`
	Checksum  string `yaml:"checksum" json:"checksum" validate:"omitempty,hexadecimal"`
	Algorithm string `yaml:"algorithm" json:"algorithm" validate:"required_with=Checksum,omitempty,checksum_algorithm"`
}

// Params are the host parameters for one guest: its identity, the raw
// qm.conf / pct.conf (or qm / pct flags) and provisioning options.
type Params struct {
	VMID      int            `yaml:"vmid" json:"vmid" validate:"required,gt=0"`
	Node      string         `yaml:"node" json:"node" validate:"required,hostname_rfc1123"`
	Template  *Template      `yaml:"template,omitempty" json:"template,omitempty"`
	ForceStop bool           `yaml:"force_stop" json:"force_stop"`
	Firewall  map[string]any `yaml:"firewall" json:"firewall"`
	Config    string         `yaml:"config" json:"config" validate:"required"`
	CloudInit string         `yaml:"cloud_init" json:"cloud_init" validate:"omitempty,pve_storage"`
}

// NewParams returns Params with defaults applied: force_stop on and an
// empty firewall.
func NewParams() Params {
	return Params{
		ForceStop: true,
		Firewall:  map[string]any{},
	}
}

// LoadParams reads a YAML or JSON parameter file.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file %s: %w", path, err)
	}

	params, err := ParseParams(data)
	if err != nil {
		return nil, fmt.Errorf("invalid params in %s: %w", path, err)
	}
	return params, nil
}

// ParseParams decodes YAML (or JSON) onto the defaults and validates the result.
func ParseParams(data []byte) (*Params, error) {
	params := NewParams()
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}
	if params.Firewall == nil {
		params.Firewall = map[string]any{}
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

// Validate runs tag-based validation.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// validateStorageID implements the "pve_storage" tag.
func validateStorageID(fl validator.FieldLevel) bool {
	return storageIDRegex.MatchString(fl.Field().String())
}

// validateFileName implements the "pve_filename" tag.
func validateFileName(fl validator.FieldLevel) bool {
	return fileNameRegex.MatchString(fl.Field().String())
}

// validateChecksumAlgorithm implements the "checksum_algorithm" tag.
func validateChecksumAlgorithm(fl validator.FieldLevel) bool {
	return checksumAlgorithms[strings.ToLower(fl.Field().String())]
}

// formatValidationError renders go-playground/validator errors as concise, user-facing text.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("params validation failed: %w", err)
	}

	var errorMessages []string
	for _, fieldError := range validationErrors {
		errorMessages = append(errorMessages, formatFieldError(fieldError))
	}

	return fmt.Errorf("params validation failed:\n  - %s",
		strings.Join(errorMessages, "\n  - "))
}

func formatFieldError(fieldError validator.FieldError) string {
	fieldName := fieldError.Field()
	param := fieldError.Param()
	value := fieldError.Value()

	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fieldName)
	case "required_with":
		return fmt.Sprintf("'%s' is required when '%s' is set", fieldName, param)
	case "gt":
		return fmt.Sprintf("'%s' must be greater than %s, got '%v'", fieldName, param, value)
	case "hostname_rfc1123":
		return fmt.Sprintf("'%s' must be a valid hostname, got '%v'", fieldName, value)
	case "hexadecimal":
		return fmt.Sprintf("'%s' must be a hex digest, got '%v'", fieldName, value)
	case "url|pve_filename":
		return fmt.Sprintf("'%s' must be a URL or a bare file name, got '%v'", fieldName, value)
	case "pve_storage":
		return fmt.Sprintf("'%s' must be a Proxmox storage id (e.g. 'local-lvm'), got '%v'", fieldName, value)
	case "checksum_algorithm":
		return fmt.Sprintf("'%s' must be one of md5, sha1, sha224, sha256, sha384, sha512, got '%v'", fieldName, value)
	default:
		return fmt.Sprintf("'%s' failed validation '%s', got '%v'", fieldName, fieldError.Tag(), value)
	}
}
