package api

import (
	"time"

	"github.com/nauticalab/pveconf/internal/config"
	"github.com/nauticalab/pveconf/internal/result"
)

// ParseRequest is the body of POST /api/v1/parse and /api/v1/render. The
// config text comes either inline (config) or from a ConfigMap.
type ParseRequest struct {
	result.Params
	// ConfigMap is "[namespace/]name[:key]"
	ConfigMap string `json:"configmap,omitempty"`
}

// ConvertRequest is the body of POST /api/v1/convert
type ConvertRequest struct {
	Config    string `json:"config"`
	ConfigMap string `json:"configmap,omitempty"`
}

// ConvertResponse carries one rendering of a config. Text and Lines are set
// for the cli and config formats, Map for the map format.
type ConvertResponse struct {
	Flavor config.Flavor  `json:"flavor"`
	Format string         `json:"format"`
	Text   string         `json:"text,omitempty"`
	Lines  []string       `json:"lines,omitempty"`
	Map    map[string]any `json:"map,omitempty"`
}

// ValidateRequest is the body of POST /api/v1/validate
type ValidateRequest struct {
	Config    string `json:"config"`
	ConfigMap string `json:"configmap,omitempty"`
	// CloudInit overrides the server's default cloud-init storage
	CloudInit string `json:"cloud_init,omitempty"`
}

// RenderResponse maps output file names to rendered content
type RenderResponse struct {
	Files map[string]string `json:"files"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// VersionResponse represents the version information
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
