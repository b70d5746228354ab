package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/nauticalab/pveconf/internal/config"
	"github.com/nauticalab/pveconf/internal/k8s"
	"github.com/nauticalab/pveconf/internal/validation"
)

func setupTestServer(t *testing.T, mutate func(cfg *ServerConfig)) *Server {
	t.Helper()
	clientset := fake.NewSimpleClientset(&corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "guests", Namespace: "infra"},
		Data: map[string]string{
			"100.conf": "scsi0: local-lvm:vm-100-disk-0,size=4G\nmemory: 2048",
			"200.conf": "rootfs: local-lvm:vm-200-disk-0,size=8G",
		},
	})

	cfg := ServerConfig{
		Addr:      ":0",
		Logger:    testr.New(t),
		K8sClient: k8s.NewClientWithInterface(clientset),
		Version:   "v1",
		GitCommit: "commit",
		BuildTime: "time",
		GoVersion: "go1.24",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	server, err := NewServer(cfg)
	require.NoError(t, err)
	return server
}

func do(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHandler_Health(t *testing.T) {
	w := do(t, setupTestServer(t, nil), http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHandler_Version(t *testing.T) {
	w := do(t, setupTestServer(t, nil), http.MethodGet, "/api/v1/version", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[VersionResponse](t, w)
	assert.Equal(t, "v1", resp.Version)
	assert.Equal(t, "commit", resp.GitCommit)
	assert.Equal(t, "time", resp.BuildTime)
	assert.Equal(t, "go1.24", resp.GoVersion)
}

func TestHandler_Parse(t *testing.T) {
	server := setupTestServer(t, nil)

	t.Run("vm", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/parse",
			`{"vmid": 100, "node": "pm1", "cloud_init": "local-lvm", "config": "scsi0: local-lvm:vm-100-disk-0,size=4G"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[map[string]any](t, w)
		assert.Equal(t, float64(100), resp["vmid"])
		assert.Equal(t, true, resp["force_stop"])
		assert.Equal(t, "--scsi0 file=local-lvm:vm-100-disk-0,size=4G", resp["cli"])
		assert.Equal(t, map[string]any{"storage": "local-lvm", "mountpoint": "ide0"}, resp["cloud_init"])
	})

	t.Run("from configmap", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/parse",
			`{"vmid": 200, "node": "pm1", "configmap": "infra/guests:200.conf"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[map[string]any](t, w)
		assert.Equal(t, "rootfs: volume=local-lvm:vm-200-disk-0,size=8G", resp["config_text"])
		assert.Contains(t, resp, "lxc")
	})

	t.Run("invalid params", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/parse", `{"node": "pm1", "config": "memory: 1"}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Contains(t, resp.Message, "'vmid' is required")
	})

	t.Run("no root disk", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/parse", `{"vmid": 1, "node": "pm1", "config": "memory: 1"}`)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode[ErrorResponse](t, w)
		assert.Contains(t, resp.Message, config.ErrRootDiskNotFound.Error())
	})

	t.Run("malformed json", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/parse", `{"vmid":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_Convert(t *testing.T) {
	server := setupTestServer(t, nil)
	body := `{"config": "# web\nscsi0: local-lvm:vm-100-disk-0,size=4G\nmemory: 2048"}`

	t.Run("cli", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/convert?to=cli", body)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[ConvertResponse](t, w)
		assert.Equal(t, config.FlavorVM, resp.Flavor)
		assert.Equal(t, "--scsi0 file=local-lvm:vm-100-disk-0,size=4G --memory 2048", resp.Text)
		assert.Len(t, resp.Lines, 2)
	})

	t.Run("config by default", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/convert", `{"config": "--scsi0 local-lvm:vm-100-disk-0 --memory 2048"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[ConvertResponse](t, w)
		assert.Equal(t, FormatConfig, resp.Format)
		assert.Equal(t, "scsi0: file=local-lvm:vm-100-disk-0\nmemory: 2048", resp.Text)
	})

	t.Run("map", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/convert?to=map", body)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[ConvertResponse](t, w)
		assert.Equal(t, "2048", resp.Map["memory"])
		assert.Empty(t, resp.Text)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/convert?to=xml", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed config", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/convert", `{"config": "memory 2048"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestHandler_Validate(t *testing.T) {
	server := setupTestServer(t, func(cfg *ServerConfig) { cfg.CloudInit = "local-lvm" })

	t.Run("valid", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/validate", `{"configmap": "infra/guests:100.conf"}`)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[validation.ValidationResult](t, w)
		assert.True(t, resp.IsValid)
	})

	t.Run("server cloud-init default applies", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/validate",
			`{"config": "ide0: local-lvm:cloudinit\nide1: local-lvm:vm-100-disk-0"}`)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[validation.ValidationResult](t, w)
		assert.False(t, resp.IsValid)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "cloud_init", resp.Errors[0].Type)
	})

	t.Run("configmap name is the file", func(t *testing.T) {
		w := do(t, server, http.MethodPost, "/api/v1/validate", `{"configmap": "infra/guests:200.conf", "cloud_init": "other"}`)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[validation.ValidationResult](t, w)
		assert.True(t, resp.IsValid)
	})
}

func TestHandler_Render(t *testing.T) {
	server := setupTestServer(t, nil)

	w := do(t, server, http.MethodPost, "/api/v1/render",
		`{"vmid": 200, "node": "pm1", "config": "rootfs: local-lvm:vm-200-disk-0,size=8G"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[RenderResponse](t, w)
	require.Contains(t, resp.Files, "pct-create.sh")
	require.Contains(t, resp.Files, "config.conf")
	assert.Contains(t, resp.Files["pct-create.sh"], "--rootfs volume=local-lvm:vm-200-disk-0,size=8G")
	assert.Equal(t, "rootfs: volume=local-lvm:vm-200-disk-0,size=8G\n", resp.Files["config.conf"])
}

func TestHandler_ConfigSources(t *testing.T) {
	tests := []struct {
		name     string
		noK8s    bool
		body     string
		wantCode int
	}{
		{"neither", false, `{}`, http.StatusBadRequest},
		{"both", false, `{"config": "memory: 1", "configmap": "infra/guests:100.conf"}`, http.StatusBadRequest},
		{"bad reference", false, `{"configmap": "a/b/c"}`, http.StatusBadRequest},
		{"missing configmap", false, `{"configmap": "infra/absent"}`, http.StatusNotFound},
		{"ambiguous key", false, `{"configmap": "infra/guests"}`, http.StatusUnprocessableEntity},
		{"disabled", true, `{"configmap": "infra/guests:100.conf"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, func(cfg *ServerConfig) {
				if tt.noK8s {
					cfg.K8sClient = nil
				}
			})
			w := do(t, server, http.MethodPost, "/api/v1/validate", tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestHandler_BodyTooLarge(t *testing.T) {
	server := setupTestServer(t, nil)
	body := `{"config": "` + strings.Repeat("a", maxBodyBytes) + `"}`

	w := do(t, server, http.MethodPost, "/api/v1/validate", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServer_RateLimit(t *testing.T) {
	server := setupTestServer(t, func(cfg *ServerConfig) { cfg.RateLimit = 2 })

	assert.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/v1/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/v1/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, server, http.MethodGet, "/api/v1/health", "").Code)
}

func TestNewServer_Errors(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)

	_, err = NewServer(ServerConfig{Addr: ":0", RateLimit: -1})
	assert.Error(t, err)
}
