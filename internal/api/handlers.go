package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/nauticalab/pveconf/internal/auth"
	"github.com/nauticalab/pveconf/internal/config"
	"github.com/nauticalab/pveconf/internal/k8s"
	"github.com/nauticalab/pveconf/internal/result"
	"github.com/nauticalab/pveconf/internal/templates"
	"github.com/nauticalab/pveconf/internal/validation"
)

// maxBodyBytes caps request bodies; guest configs are a few KiB.
const maxBodyBytes = 1 << 20

// Conversion targets accepted by POST /api/v1/convert?to=
const (
	FormatConfig = "config"
	FormatCLI    = "cli"
	FormatMap    = "map"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	log logr.Logger
	// k8sClient resolves configmap references; nil disables them
	k8sClient *k8s.Client
	// cloudInit is the default cloud-init storage for validation
	cloudInit string
	// version is the application version
	version string
	// gitCommit is the git commit hash of the build
	gitCommit string
	// buildTime is the time when the application was built
	buildTime string
	// goVersion is the Go version used to build the application
	goVersion string
}

// NewHandler creates a new Handler instance
func NewHandler(log logr.Logger, k8sClient *k8s.Client, cloudInit, version, gitCommit, buildTime, goVersion string) *Handler {
	return &Handler{
		log:       log,
		k8sClient: k8sClient,
		cloudInit: cloudInit,
		version:   version,
		gitCommit: gitCommit,
		buildTime: buildTime,
		goVersion: goVersion,
	}
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Version handles GET /api/v1/version
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, VersionResponse{
		Version:   h.version,
		GitCommit: h.gitCommit,
		BuildTime: h.buildTime,
		GoVersion: h.goVersion,
	})
}

// Parse handles POST /api/v1/parse
// Assembles the full result for one guest.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	res, err := result.Assemble(h.log, params)
	if err != nil {
		h.log.V(1).Info("parse rejected", "vmid", params.VMID, "caller", caller(r), "error", err.Error())
		respondUnprocessable(w, err.Error())
		return
	}
	respondSuccess(w, res)
}

// Convert handles POST /api/v1/convert?to=config|cli|map
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("to")
	if format == "" {
		format = FormatConfig
	}
	if format != FormatConfig && format != FormatCLI && format != FormatMap {
		respondBadRequest(w, fmt.Sprintf("Unknown format %q, expected config, cli or map", format))
		return
	}

	var req ConvertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, _, ok := h.resolveConfig(w, r, req.Config, req.ConfigMap)
	if !ok {
		return
	}

	doc, err := config.ParseDocument(text)
	if err != nil {
		respondUnprocessable(w, err.Error())
		return
	}

	resp := ConvertResponse{Flavor: doc.Flavor(), Format: format}
	switch format {
	case FormatCLI:
		resp.Text = doc.CLI()
		resp.Lines = doc.CLIList()
	case FormatMap:
		resp.Map = doc.Map()
	default:
		resp.Text = doc.ConfigText()
		resp.Lines = doc.ConfigList()
	}
	respondSuccess(w, resp)
}

// Validate handles POST /api/v1/validate
// Findings are reported in the body; an invalid config is still a 200.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text, source, ok := h.resolveConfig(w, r, req.Config, req.ConfigMap)
	if !ok {
		return
	}

	cloudInit := req.CloudInit
	if cloudInit == "" {
		cloudInit = h.cloudInit
	}
	respondSuccess(w, validation.NewConfigValidator(cloudInit).Validate(text, source))
}

// Render handles POST /api/v1/render
// Returns the provisioning script and config file for the guest's flavor.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	params, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	res, err := result.Assemble(h.log, params)
	if err != nil {
		respondUnprocessable(w, err.Error())
		return
	}

	data := templates.RenderData{Result: res}
	files := make(map[string]string)
	for _, name := range templates.TemplatesFor(res.Flavor) {
		var buf bytes.Buffer
		if err := templates.Render(&buf, name, data); err != nil {
			h.log.Error(err, "render failed", "vmid", res.VMID, "template", name, "caller", caller(r))
			respondInternalError(w, "Failed to render "+name)
			return
		}
		files[name] = buf.String()
	}
	respondSuccess(w, RenderResponse{Files: files})
}

// decodeParams reads a ParseRequest with defaults applied and resolves its
// config source.
func (h *Handler) decodeParams(w http.ResponseWriter, r *http.Request) (result.Params, bool) {
	req := ParseRequest{Params: result.NewParams()}
	if !decodeJSON(w, r, &req) {
		return result.Params{}, false
	}

	text, _, ok := h.resolveConfig(w, r, req.Config, req.ConfigMap)
	if !ok {
		return result.Params{}, false
	}
	req.Config = text
	if req.Firewall == nil {
		req.Firewall = map[string]any{}
	}
	return req.Params, true
}

// resolveConfig returns the config text and a name for it, either inline or
// read from a ConfigMap. On failure the error response is already written.
func (h *Handler) resolveConfig(w http.ResponseWriter, r *http.Request, inline, configMap string) (string, string, bool) {
	if configMap == "" {
		if inline == "" {
			respondBadRequest(w, "One of config or configmap is required")
			return "", "", false
		}
		return inline, "", true
	}
	if inline != "" {
		respondBadRequest(w, "Set either config or configmap, not both")
		return "", "", false
	}

	if h.k8sClient == nil {
		respondBadRequest(w, "ConfigMap sources are not enabled on this server")
		return "", "", false
	}
	ref, err := k8s.ParseConfigMapRef(configMap)
	if err != nil {
		respondBadRequest(w, err.Error())
		return "", "", false
	}

	text, err := h.k8sClient.GetConfigText(r.Context(), ref)
	if err != nil {
		if apierrors.IsNotFound(err) {
			respondNotFound(w, fmt.Sprintf("ConfigMap %s not found", ref))
			return "", "", false
		}
		h.log.Error(err, "failed to read configmap", "ref", ref.String(), "caller", caller(r))
		respondUnprocessable(w, err.Error())
		return "", "", false
	}
	return text, ref.String(), true
}

// caller names the authenticated identity of a request, if any.
func caller(r *http.Request) string {
	if identity, ok := auth.GetIdentityFromContext(r.Context()); ok {
		return identity.String()
	}
	return "anonymous"
}

// decodeJSON decodes a size-limited body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respondBadRequest(w, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
