package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	cloudInitMarker = "cloudinit"
	ideBus          = "ide"
	ideSlots        = 3
)

// CloudInitSlot is where a cloud-init image gets attached.
type CloudInitSlot struct {
	Storage    string `json:"storage,omitempty" yaml:"storage,omitempty"`
	MountPoint string `json:"mountpoint,omitempty" yaml:"mountpoint,omitempty"`
}

// IsZero reports whether no slot was allocated.
func (s CloudInitSlot) IsZero() bool { return s == CloudInitSlot{} }

// ToMap returns {storage, mountpoint}, or an empty map when no slot was allocated.
func (s CloudInitSlot) ToMap() map[string]any {
	if s.IsZero() {
		return map[string]any{}
	}
	return map[string]any{"storage": s.Storage, "mountpoint": s.MountPoint}
}

// CloudInitSlot picks the IDE slot for a cloud-init image stored on storage.
// An empty storage means cloud-init is not used and returns a zero slot.
//
// When the config has any disk on a non-IDE bus the image always goes on
// ide0. Otherwise the first of ide0..ide2 not used by a disk or ISO is
// returned.
func (d *Document) CloudInitSlot(storage string) (CloudInitSlot, error) {
	if storage == "" {
		return CloudInitSlot{}, nil
	}

	disks := d.Disks()
	for _, disk := range disks {
		if !strings.Contains(disk.Slot, ideBus) {
			return CloudInitSlot{Storage: storage, MountPoint: ideBus + "0"}, nil
		}
	}

	for _, disk := range disks {
		if strings.Contains(disk.FullName, cloudInitMarker) {
			return CloudInitSlot{}, fmt.Errorf("%w: %s uses %s", ErrCloudInitConflict, disk.Slot, disk.File)
		}
	}

	used := sets.New[string]()
	for _, rec := range d.diskRecords() {
		used.Insert(rec.Slot)
	}
	for i := range ideSlots {
		slot := fmt.Sprintf("%s%d", ideBus, i)
		if !used.Has(slot) {
			return CloudInitSlot{Storage: storage, MountPoint: slot}, nil
		}
	}
	return CloudInitSlot{}, ErrNoFreeSlot
}
