package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nauticalab/pveconf/internal/git"
	"github.com/nauticalab/pveconf/internal/result"
)

func assemble(t *testing.T, vmid int, cfg string, mutate func(p *result.Params)) *result.Result {
	t.Helper()
	p := result.NewParams()
	p.VMID = vmid
	p.Node = "pm1"
	p.Config = cfg
	if mutate != nil {
		mutate(&p)
	}
	res, err := result.Assemble(logr.Discard(), p)
	require.NoError(t, err)
	return res
}

func vmResult(t *testing.T) *result.Result {
	return assemble(t, 100,
		"# web frontend\nscsi0: local-lvm:vm-100-disk-0,size=4G\nnet0: virtio=02:C3:03:86:52:96,bridge=vmbr0",
		func(p *result.Params) { p.CloudInit = "local-lvm" })
}

func containerResult(t *testing.T) *result.Result {
	return assemble(t, 200,
		"rootfs: local-lvm:vm-200-disk-0,size=8G\nhostname: ct 200\nlxc.idmap: u 0 100000 1005\nlxc.idmap: u 1005 1005 1",
		func(p *result.Params) {
			p.ForceStop = false
			p.Template = &result.Template{
				URL:       "http://download.proxmox.com/images/system/debian-12-standard_12.2-1_amd64.tar.zst",
				Checksum:  "ab12",
				Algorithm: "sha512",
			}
		})
}

func TestRender_QMCreate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, TemplateQMCreate, RenderData{Result: vmResult(t)}))

	expected := `#!/bin/sh
# Generated by pveconf for VM 100 on pm1.
set -eu

VMID=100

qm stop "$VMID" --skiplock 1 2>/dev/null || true

qm create "$VMID" \
  --scsi0 file=local-lvm:vm-100-disk-0,size=4G \
  --net0 virtio=02:C3:03:86:52:96,bridge=vmbr0

qm set "$VMID" --ide0 local-lvm:cloudinit
`
	assert.Equal(t, expected, buf.String())
}

func TestRender_PCTCreate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, TemplatePCTCreate, RenderData{Result: containerResult(t)}))
	out := buf.String()

	assert.Contains(t, out, "# Generated by pveconf for container 200 on pm1.\n")
	assert.Contains(t, out, "TEMPLATE=debian-12-standard_12.2-1_amd64.tar.zst\n")
	assert.Contains(t, out, "echo 'ab12  debian-12-standard_12.2-1_amd64.tar.zst' | sha512sum -c -\n")
	assert.Contains(t, out, "pct create \"$VMID\" \"${TEMPLATE:?set TEMPLATE to an ostemplate}\" \\\n"+
		"  --rootfs volume=local-lvm:vm-200-disk-0,size=8G \\\n"+
		"  --hostname 'ct 200'\n")
	assert.Contains(t, out, "grep -qxF root:1005:1 /etc/subuid || echo root:1005:1 >> /etc/subuid\n")
	assert.Contains(t, out, "<<'CONF'\nlxc.idmap: u 0 100000 1005\nlxc.idmap: u 1005 1005 1\nCONF\n")
	assert.NotContains(t, out, "--lxc")
	assert.NotContains(t, out, "pct stop")
	assert.NotContains(t, out, "subgid")
}

func TestRender_ChecksumToolIsLowercase(t *testing.T) {
	image := &result.Template{
		URL:       "https://images.example.com/debian.qcow2",
		Checksum:  "abcdef",
		Algorithm: "SHA512",
	}

	vm := assemble(t, 100, "scsi0: local-lvm:vm-100-disk-0", func(p *result.Params) { p.Template = image })
	var qm bytes.Buffer
	require.NoError(t, Render(&qm, TemplateQMCreate, RenderData{Result: vm}))
	assert.Contains(t, qm.String(), "echo 'abcdef  debian.qcow2' | sha512sum -c -\n")
	assert.NotContains(t, qm.String(), "SHA512sum")

	ct := assemble(t, 200, "rootfs: local-lvm:vm-200-disk-0", func(p *result.Params) { p.Template = image })
	var pct bytes.Buffer
	require.NoError(t, Render(&pct, TemplatePCTCreate, RenderData{Result: ct}))
	assert.Contains(t, pct.String(), "| sha512sum -c -\n")
}

func TestRender_Config(t *testing.T) {
	res := vmResult(t)

	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, TemplateConfig, RenderData{Result: res}))
		assert.Equal(t, res.ConfigText+"\n", buf.String())
	})

	t.Run("with provenance", func(t *testing.T) {
		prov := &git.Provenance{File: "vms/100.conf", Branch: "main", CommitHash: "0123456789abcdef"}

		var buf bytes.Buffer
		require.NoError(t, Render(&buf, TemplateConfig, RenderData{Result: res, Provenance: prov}))
		assert.Equal(t, "# pveconf source: vms/100.conf@main (0123456)\n"+res.ConfigText+"\n", buf.String())
	})
}

func TestRenderData(t *testing.T) {
	data := RenderData{Result: containerResult(t)}
	assert.Equal(t, []string{"--rootfs volume=local-lvm:vm-200-disk-0,size=8G", "--hostname ct 200"}, data.Flags())
	assert.Equal(t, []string{"lxc.idmap: u 0 100000 1005", "lxc.idmap: u 1005 1005 1"}, data.ExtensionLines())

	assert.Nil(t, RenderData{Result: vmResult(t)}.ExtensionLines())
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"local-lvm:vm-100-disk-0,size=4G", "local-lvm:vm-100-disk-0,size=4G"},
		{"u 0 100000 1005", "'u 0 100000 1005'"},
		{"it's", `'it'\''s'`},
		{"$(reboot)", "'$(reboot)'"},
		{"", "''"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shellQuote(tt.in), tt.in)
	}

	assert.Equal(t, "--memory 2048", flagArgs("--memory 2048"))
	assert.Equal(t, "--lxc.idmap 'u 0 1 1'", flagArgs("--lxc.idmap u 0 1 1"))
	assert.Equal(t, "--template", flagArgs("--template"))
}

func TestRenderer_RenderAll(t *testing.T) {
	t.Run("vm", func(t *testing.T) {
		dir := t.TempDir()
		paths, err := NewRenderer(dir).RenderAll(RenderData{Result: vmResult(t)})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "qm-create.sh"), filepath.Join(dir, "100.conf")}, paths)

		info, err := os.Stat(paths[0])
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o100, "script should be executable")

		content, err := os.ReadFile(paths[1])
		require.NoError(t, err)
		assert.Contains(t, string(content), "scsi0: file=local-lvm:vm-100-disk-0,size=4G")
	})

	t.Run("container", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		paths, err := NewRenderer(dir).RenderAll(RenderData{Result: containerResult(t)})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "pct-create.sh"), filepath.Join(dir, "200.conf")}, paths)
	})
}

func TestRender_ErrorCases(t *testing.T) {
	t.Run("unknown template", func(t *testing.T) {
		var buf bytes.Buffer
		err := Render(&buf, "nonexistent", RenderData{Result: vmResult(t)})
		assert.Error(t, err)
	})

	t.Run("missing result", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, Render(&buf, TemplateConfig, RenderData{}))

		_, err := NewRenderer(t.TempDir()).RenderAll(RenderData{})
		assert.Error(t, err)
	})

	t.Run("invalid output directory", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))

		_, err := NewRenderer(filepath.Join(blocker, "out")).RenderTemplate(TemplateConfig, RenderData{Result: vmResult(t)})
		assert.Error(t, err)
	})
}
