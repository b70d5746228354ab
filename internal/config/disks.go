package config

import "strings"

const (
	isoStorageOption = "iso"
	rootDiskMarker   = "-disk-0"
)

// DiskRecord is the storage view of a Disk or rootfs line.
//
// For "scsi0: local-lvm:103/vm-103-disk-0.raw,size=2G,ssd=1":
//
//	Slot          scsi0
//	File          local-lvm:103/vm-103-disk-0.raw
//	Storage       local-lvm
//	StorageOption 103
//	FullName      vm-103-disk-0.raw
//	Name          vm-103-disk-0
//	Format        raw
//	Options       {size: 2G, ssd: 1}
//	CreateHint    local-lvm:2
type DiskRecord struct {
	Slot          string            `json:"disk" yaml:"disk"`
	Line          string            `json:"line" yaml:"line"`
	File          string            `json:"file" yaml:"file"`
	FullName      string            `json:"fullname" yaml:"fullname"`
	Storage       string            `json:"storage" yaml:"storage"`
	StorageOption string            `json:"storage-option" yaml:"storage-option"`
	Name          string            `json:"name" yaml:"name"`
	Format        string            `json:"format" yaml:"format"`
	Options       map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
	CreateHint    string            `json:"create,omitempty" yaml:"create,omitempty"`
}

// IsISO reports whether the record is an ISO image on an "iso" storage path.
func (r DiskRecord) IsISO() bool { return r.StorageOption == isoStorageOption }

// ToMap returns the flat record: fixed fields, then every other option of the
// line, then meta.create when a size was given.
func (r DiskRecord) ToMap() map[string]any {
	out := map[string]any{
		"disk":           r.Slot,
		"line":           r.Line,
		"file":           r.File,
		"fullname":       r.FullName,
		"storage":        r.Storage,
		"storage-option": r.StorageOption,
		"name":           r.Name,
		"format":         r.Format,
	}
	for k, v := range r.Options {
		out[k] = v
	}
	if r.CreateHint != "" {
		out["meta"] = map[string]any{"create": r.CreateHint}
	}
	return out
}

// diskRecords builds a record for every Disk and rootfs line in input order.
func (d *Document) diskRecords() []DiskRecord {
	var records []DiskRecord
	for _, opt := range d.options {
		if opt.category != CategoryDisk && opt.category != CategoryRootFilesystem {
			continue
		}
		records = append(records, newDiskRecord(opt))
	}
	return records
}

func newDiskRecord(opt ConfigOption) DiskRecord {
	rec := DiskRecord{Slot: opt.key, Line: opt.raw, Options: map[string]string{}}
	located := false
	for _, v := range opt.values {
		key, ok := v.Key()
		if !ok {
			continue
		}
		if key == "file" || key == "volume" {
			rec.File = v.Value().String()
			rec.Storage, rec.StorageOption, rec.FullName = splitLocator(rec.File)
			rec.Name, rec.Format = splitFileName(rec.FullName)
			located = true
			continue
		}
		rec.Options[key] = v.Value().String()
	}

	if size, ok := rec.Options["size"]; ok && located {
		rec.CreateHint = rec.Storage + ":" + digits(size)
	}
	return rec
}

// splitLocator decomposes "pool:option/fullname" or "pool:fullname".
// Locators without a pool ("none", "/dev/sdb") keep only the file name.
func splitLocator(file string) (storage, option, fullname string) {
	storage, rest, found := strings.Cut(file, ":")
	if !found {
		if i := strings.LastIndex(file, "/"); i >= 0 {
			return "", "", file[i+1:]
		}
		return "", "", file
	}
	if opt, name, ok := strings.Cut(rest, "/"); ok {
		return storage, opt, name
	}
	return storage, "", rest
}

// splitFileName splits "vm-100-disk-0.qcow2" into name and format, treating
// "tar.*" as one format ("rootfs.tar.gz" is "rootfs" + "tar.gz").
func splitFileName(fullname string) (name, format string) {
	if strings.Contains(fullname, ".tar.") {
		i := strings.LastIndex(fullname, ".")
		j := strings.LastIndex(fullname[:i], ".")
		return fullname[:j], fullname[j+1:]
	}
	if i := strings.LastIndex(fullname, "."); i >= 0 {
		return fullname[:i], fullname[i+1:]
	}
	return fullname, ""
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Disks returns every non-ISO disk record in input order.
func (d *Document) Disks() []DiskRecord {
	var disks []DiskRecord
	for _, rec := range d.diskRecords() {
		if !rec.IsISO() {
			disks = append(disks, rec)
		}
	}
	return disks
}

// ISOs returns every ISO record in input order.
func (d *Document) ISOs() []DiskRecord {
	var isos []DiskRecord
	for _, rec := range d.diskRecords() {
		if rec.IsISO() {
			isos = append(isos, rec)
		}
	}
	return isos
}

// RootDisk returns the rootfs volume of a container, or else the first
// volume whose name contains "-disk-0".
func (d *Document) RootDisk() (DiskRecord, error) {
	records := d.diskRecords()
	for _, rec := range records {
		if strings.Contains(rec.Slot, rootfsKey) {
			return rec, nil
		}
	}
	for _, rec := range records {
		if strings.Contains(rec.Name, rootDiskMarker) {
			return rec, nil
		}
	}
	return DiskRecord{}, ErrRootDiskNotFound
}
