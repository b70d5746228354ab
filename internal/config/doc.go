// Package config parses Proxmox VE guest configuration: qm.conf for virtual
// machines, pct.conf for containers, and the equivalent qm / pct command
// line flags.
//
// A config line has three levels of structure:
//
//	mp0: volume=local-lvm:vm-100-disk-1,mp=/data,mountoptions=noatime;nodev
//
//	key        mp0
//	primary    volume=local-lvm:vm-100-disk-1
//	primary    mp=/data
//	primary    mountoptions=noatime;nodev
//	secondary  noatime, nodev
//
// The value is split on ',' into primary options, each primary option on the
// first '=' into key and value, and each value on ';' into secondary values.
// The same line in CLI form is "--scsi0 local-lvm:vm-100-disk-0,...".
//
// # Basic Usage
//
//	doc, err := config.ParseDocument(text)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(doc.ConfigText()) // qm.conf form
//	fmt.Println(doc.CLI())        // --key value form
//	m := doc.Map()                // nested map form
//
// # Optional Keys
//
// Some keys may leave out the key of their first primary option, e.g.
// "scsi0: local-lvm:vm-100-disk-0" means "scsi0: file=local-lvm:vm-100-disk-0".
// The parser fills the key in, so ConfigText always returns the explicit form
// and parsing its output again gives the same text. See [DefaultOptionalKeys].
//
// # Flavor
//
// A document with a rootfs line is a container config ([FlavorContainer]);
// everything else is a VM config ([FlavorVM]). The flavor changes how some
// optional keys are resolved ("unused0" volumes, "net0" models).
//
// # Enrichment
//
// [Document.Disks], [Document.ISOs] and [Document.RootDisk] decompose storage
// locators. [Document.CloudInitSlot] picks an IDE slot for a cloud-init image.
// [Document.Extensions] groups lxc.* lines and expands lxc.idmap entries.
//
// Parsing does no I/O and keeps no state between calls; a [Document] is not
// modified after [ParseDocument] returns.
package config
