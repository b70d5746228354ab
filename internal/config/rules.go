package config

import (
	"regexp"
	"slices"
	"strings"
)

const (
	// rootfsKey is the container root filesystem key; its presence makes a
	// document a container config.
	rootfsKey = "rootfs"
	// extensionPrefix marks raw LXC pass-through keys such as lxc.idmap.
	extensionPrefix = "lxc"
	// tertiaryPrefix marks keys whose value is a flat ','-joined list.
	tertiaryPrefix = "affinity"
)

// classificationRule tags a line key with a category when its pattern matches.
type classificationRule struct {
	pattern  *regexp.Regexp
	category Category
}

// classificationRules is evaluated top to bottom; the first match wins, so
// the catch-all must stay last.
var classificationRules = []classificationRule{
	{regexp.MustCompile(`^(scsi|sata|ide|virtio|efidisk)\d+`), CategoryDisk},
	{regexp.MustCompile(`^mp\d+`), CategoryMountPoint},
	{regexp.MustCompile(`^rootfs`), CategoryRootFilesystem},
	{regexp.MustCompile(`^lxc`), CategoryExtension},
	{regexp.MustCompile(`^sshkeys`), CategorySSHKeys},
	{regexp.MustCompile(`^.*`), CategoryDefault},
}

// classify returns the category of the first rule matching key.
func classify(rules []classificationRule, key string) (Category, bool) {
	for _, rule := range rules {
		if rule.pattern.MatchString(key) {
			return rule.category, true
		}
	}
	return CategoryDefault, false
}

// netModels lists the KVM network adapter models. A net line may start with
// "model=<model>", "<model>=<mac>" or just "<model>".
var netModels = []string{
	"e1000", "e1000-82540em", "e1000-82544gc", "e1000-82545em", "e1000e",
	"i82551", "i82557b", "i82559er", "ne2k_isa", "ne2k_pci", "pcnet",
	"rtl8139", "virtio", "vmxnet3",
}

// KeyResolver decides the implicit key of a first comma segment for a key
// family. ok is false when the resolver has no opinion and the next rule
// should be consulted; an empty key with ok true means no key is implied.
type KeyResolver func(family, segment string, flavor Flavor) (key string, ok bool)

// OptionalKeys maps a key family (line key without trailing digits) to the
// key that may be omitted from its first comma segment.
type OptionalKeys struct {
	static    map[string]string
	resolvers []KeyResolver
}

// NewOptionalKeys builds a key table. Resolvers run in order before the
// static table is consulted.
func NewOptionalKeys(static map[string]string, resolvers ...KeyResolver) OptionalKeys {
	return OptionalKeys{static: static, resolvers: slices.Clone(resolvers)}
}

// DefaultOptionalKeys is the qm.conf / pct.conf table.
var DefaultOptionalKeys = NewOptionalKeys(map[string]string{
	"agent":    "enabled",
	"cpu":      "cputype",
	"efidisk":  "file",
	"hostpci":  "host",
	"ide":      "file",
	"rng":      "source",
	"sata":     "file",
	"scsi":     "file",
	"startup":  "order",
	"tpmstate": "file",
	"usb":      "host",
	"vga":      "type",
	"virtio":   "file",
	"watchdog": "model",
	"mp":       "volume",
	"rootfs":   "volume",
}, resolveUnusedKey, resolveNetKey)

// Resolve returns the implied key for the first segment of a line with the
// given key, or "" when nothing is implied.
func (o OptionalKeys) Resolve(key, segment string, flavor Flavor) string {
	family := strings.TrimRight(key, "0123456789")
	segment = strings.TrimSpace(segment)
	for _, resolve := range o.resolvers {
		if implied, ok := resolve(family, segment, flavor); ok {
			return implied
		}
	}
	return o.static[family]
}

// resolveUnusedKey: unused volumes are files for VMs and volumes for containers.
func resolveUnusedKey(family, _ string, flavor Flavor) (string, bool) {
	if family != "unused" {
		return "", false
	}
	if flavor == FlavorContainer {
		return "volume", true
	}
	return "file", true
}

// resolveNetKey handles KVM net lines. "virtio=AA:BB:.." already carries its
// key, a bare "virtio" is a model, anything else falls through.
func resolveNetKey(family, segment string, flavor Flavor) (string, bool) {
	if family != "net" || flavor != FlavorVM {
		return "", false
	}
	for _, model := range netModels {
		if strings.HasPrefix(segment, model+"=") {
			return "", true
		}
		if segment == model {
			return "model", true
		}
	}
	return "", false
}
