package config

// Kind describes how a primary or secondary option was parsed.
type Kind int

const (
	// KindValueOnly is a bare value with no key and no ';' sub-values.
	KindValueOnly Kind = iota
	// KindKeyValue marks a keyed primary option, or a secondary option
	// holding more than one ';'-separated value.
	KindKeyValue
	// KindComment is the text of a '#' line, stored verbatim.
	KindComment
	// KindExtension is the raw value of a container-runtime extension line.
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindValueOnly:
		return "value-only"
	case KindKeyValue:
		return "key-value"
	case KindComment:
		return "comment"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Category is the broad classification of a whole config line.
type Category int

const (
	CategoryDefault Category = iota
	CategoryComment
	CategoryDisk
	CategoryMountPoint
	CategoryRootFilesystem
	CategorySSHKeys
	CategoryExtension
	CategoryTertiaryOnly
)

func (c Category) String() string {
	switch c {
	case CategoryDefault:
		return "default"
	case CategoryComment:
		return "comment"
	case CategoryDisk:
		return "disk"
	case CategoryMountPoint:
		return "mountpoint"
	case CategoryRootFilesystem:
		return "rootfs"
	case CategorySSHKeys:
		return "sshkeys"
	case CategoryExtension:
		return "extension"
	case CategoryTertiaryOnly:
		return "tertiary"
	default:
		return "unknown"
	}
}

// Flavor is the document type: a KVM virtual machine (qm.conf) or an LXC
// container (pct.conf).
type Flavor int

const (
	FlavorVM Flavor = iota
	FlavorContainer
)

func (f Flavor) String() string {
	if f == FlavorContainer {
		return "container"
	}
	return "vm"
}

// MarshalText lets flavors render as words in JSON and YAML output.
func (f Flavor) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}
