package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_CloudInitSlot(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		storage  string
		expected CloudInitSlot
	}{
		{
			name:     "not configured",
			raw:      "scsi0: local-lvm:vm-100-disk-0",
			storage:  "",
			expected: CloudInitSlot{},
		},
		{
			name:     "non ide disk always uses ide0",
			raw:      readFixture(t, "qm_inferred.conf"),
			storage:  "local-lvm",
			expected: CloudInitSlot{Storage: "local-lvm", MountPoint: "ide0"},
		},
		{
			name:     "non ide disk ignores ide0 occupancy",
			raw:      "ide0: local-lvm:vm-100-disk-1\nscsi0: local-lvm:vm-100-disk-0",
			storage:  "local-lvm",
			expected: CloudInitSlot{Storage: "local-lvm", MountPoint: "ide0"},
		},
		{
			name:     "no disks",
			raw:      "memory: 2048",
			storage:  "local-lvm",
			expected: CloudInitSlot{Storage: "local-lvm", MountPoint: "ide0"},
		},
		{
			name:     "first free ide slot",
			raw:      "ide0: local-lvm:vm-100-disk-0\nide2: local:iso/debian.iso,media=cdrom",
			storage:  "ceph",
			expected: CloudInitSlot{Storage: "ceph", MountPoint: "ide1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := mustParseDocument(t, tt.raw).CloudInitSlot(tt.storage)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slot)
		})
	}
}

func TestDocument_CloudInitSlotErrors(t *testing.T) {
	t.Run("image set in config", func(t *testing.T) {
		_, err := mustParseDocument(t, "ide0: local-lvm:cloudinit").CloudInitSlot("local-lvm")
		assert.ErrorIs(t, err, ErrCloudInitConflict)
		assert.Contains(t, err.Error(), "ide0")
	})

	t.Run("all ide slots used", func(t *testing.T) {
		raw := "ide0: local:iso/proxmox-ve_6.3-1.iso,media=cdrom\n" +
			"ide1: local:iso/proxmox-ve_6.3-1.iso,media=cdrom\n" +
			"ide2: local:iso/proxmox-ve_6.3-1.iso,media=cdrom"
		_, err := mustParseDocument(t, raw).CloudInitSlot("local-lvm")
		assert.ErrorIs(t, err, ErrNoFreeSlot)
	})
}

func TestCloudInitSlot_ToMap(t *testing.T) {
	assert.True(t, CloudInitSlot{}.IsZero())
	assert.Equal(t, map[string]any{}, CloudInitSlot{}.ToMap())
	assert.Equal(t,
		map[string]any{"storage": "local-lvm", "mountpoint": "ide0"},
		CloudInitSlot{Storage: "local-lvm", MountPoint: "ide0"}.ToMap())
}
