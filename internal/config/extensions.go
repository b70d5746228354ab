package config

import (
	"slices"
	"strings"
)

const idMapKey = "lxc.idmap"

// IDMapEntry is one "lxc.idmap: <type> <container id> <host id> <range>" line.
type IDMapEntry struct {
	Type        string `json:"ctype" yaml:"ctype"`
	ContainerID string `json:"cid" yaml:"cid"`
	HostID      string `json:"hid" yaml:"hid"`
	Range       string `json:"crange" yaml:"crange"`
}

// ExtensionBundle collects the lxc.* lines of a container config.
//
// Values holds the raw values per key in input order, duplicates included.
// Single-ID mappings ("u 1005 1005 1") also produce "root:1005:1" entries for
// /etc/subuid (SubUID) or /etc/subgid (SubGID).
type ExtensionBundle struct {
	Keys   []string            `json:"-" yaml:"-"`
	Values map[string][]string `json:"values" yaml:"values"`
	SubUID []string            `json:"subuid" yaml:"subuid"`
	SubGID []string            `json:"subgid" yaml:"subgid"`
	IDMap  []IDMapEntry        `json:"idmap" yaml:"idmap"`
}

// Extensions aggregates every extension line. A malformed lxc.idmap value is
// a *ParseError.
func (d *Document) Extensions() (ExtensionBundle, error) {
	bundle := ExtensionBundle{
		Values: map[string][]string{},
		SubUID: []string{},
		SubGID: []string{},
		IDMap:  []IDMapEntry{},
	}

	for _, opt := range d.options {
		if opt.category != CategoryExtension {
			continue
		}
		value := opt.values[0].Value().String()
		if _, seen := bundle.Values[opt.key]; !seen {
			bundle.Keys = append(bundle.Keys, opt.key)
		}
		bundle.Values[opt.key] = append(bundle.Values[opt.key], value)

		if opt.key != idMapKey {
			continue
		}
		entry, err := parseIDMap(opt.raw, value)
		if err != nil {
			return ExtensionBundle{}, err
		}
		if entry.Range == "1" {
			sub := "root:" + entry.ContainerID + ":1"
			if entry.Type == "u" {
				bundle.SubUID = append(bundle.SubUID, sub)
			} else {
				bundle.SubGID = append(bundle.SubGID, sub)
			}
		}
		bundle.IDMap = append(bundle.IDMap, entry)
	}
	return bundle, nil
}

func parseIDMap(line, value string) (IDMapEntry, error) {
	fields := strings.Fields(value)
	if len(fields) != 4 {
		return IDMapEntry{}, newParseError(line, "id map needs 4 fields, got %d", len(fields))
	}
	if fields[0] != "u" && fields[0] != "g" {
		return IDMapEntry{}, newParseError(line, "id map type must be u or g, got %q", fields[0])
	}
	return IDMapEntry{Type: fields[0], ContainerID: fields[1], HostID: fields[2], Range: fields[3]}, nil
}

// ToMap returns {key: [values]} for every extension key plus
// meta{subuid, subgid, idmap}.
func (b ExtensionBundle) ToMap() map[string]any {
	idmap := make([]map[string]any, 0, len(b.IDMap))
	for _, e := range b.IDMap {
		idmap = append(idmap, map[string]any{
			"ctype":  e.Type,
			"cid":    e.ContainerID,
			"hid":    e.HostID,
			"crange": e.Range,
		})
	}

	out := map[string]any{
		"meta": map[string]any{
			"subuid": slices.Clone(b.SubUID),
			"subgid": slices.Clone(b.SubGID),
			"idmap":  idmap,
		},
	}
	for key, values := range b.Values {
		out[key] = slices.Clone(values)
	}
	return out
}
