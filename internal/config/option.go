package config

import (
	"slices"
	"strings"
)

// SecondaryOption is the value of one comma segment split on ';'.
//
// For "mount=nfs;ext4" the secondary option holds "nfs;ext4" and its values
// are ["nfs", "ext4"].
type SecondaryOption struct {
	raw    string
	values []string
	kind   Kind
}

// ParseSecondaryOption parses the value portion of a primary option.
func ParseSecondaryOption(value string) SecondaryOption {
	if !strings.Contains(value, ";") {
		return SecondaryOption{raw: value, values: []string{strings.TrimSpace(value)}, kind: KindValueOnly}
	}

	parts := strings.Split(value, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return SecondaryOption{raw: value, values: parts, kind: KindKeyValue}
}

// literalSecondary stores text as a single value without looking for ';'.
func literalSecondary(text string, kind Kind) SecondaryOption {
	return SecondaryOption{raw: text, values: []string{strings.TrimSpace(text)}, kind: kind}
}

// Raw returns the text the option was built from.
func (s SecondaryOption) Raw() string { return s.raw }

// Kind reports whether the option holds several values (KindKeyValue), one
// value (KindValueOnly), or literal comment/extension text.
func (s SecondaryOption) Kind() Kind { return s.kind }

// Values returns a copy of the parsed values.
func (s SecondaryOption) Values() []string { return slices.Clone(s.values) }

func (s SecondaryOption) String() string {
	return strings.Join(s.values, ";")
}

// Output returns the sole value as a string, or all values as a []string.
func (s SecondaryOption) Output() any {
	if len(s.values) == 1 {
		return s.values[0]
	}
	return slices.Clone(s.values)
}

// PrimaryOption is one comma segment of a config line value, either
// "key=value" or a bare value.
type PrimaryOption struct {
	raw    string
	key    string
	hasKey bool
	value  SecondaryOption
	kind   Kind
}

// ParsePrimaryOption parses one comma segment. The segment is split once on
// the first '='; everything after it belongs to the value.
func ParsePrimaryOption(segment string) PrimaryOption {
	key, value, ok := strings.Cut(segment, "=")
	if !ok {
		return PrimaryOption{raw: segment, value: ParseSecondaryOption(strings.TrimSpace(segment)), kind: KindValueOnly}
	}
	return PrimaryOption{
		raw:    segment,
		key:    strings.TrimSpace(key),
		hasKey: true,
		value:  ParseSecondaryOption(strings.TrimSpace(value)),
		kind:   KindKeyValue,
	}
}

// CommentOption wraps comment text; no delimiter parsing takes place.
func CommentOption(text string) PrimaryOption {
	return literalPrimary(text, KindComment)
}

// ExtensionOption wraps an extension line value; no delimiter parsing takes place.
func ExtensionOption(text string) PrimaryOption {
	return literalPrimary(text, KindExtension)
}

func literalPrimary(text string, kind Kind) PrimaryOption {
	text = strings.TrimSpace(text)
	return PrimaryOption{raw: text, value: literalSecondary(text, kind), kind: kind}
}

// Raw returns the segment text the option was built from.
func (p PrimaryOption) Raw() string { return p.raw }

// Key returns the option key and whether one was present.
func (p PrimaryOption) Key() (string, bool) { return p.key, p.hasKey }

// Value returns the parsed secondary option.
func (p PrimaryOption) Value() SecondaryOption { return p.value }

func (p PrimaryOption) Kind() Kind { return p.kind }

func (p PrimaryOption) String() string {
	if !p.hasKey {
		return p.value.String()
	}
	return p.key + "=" + p.value.String()
}

// Output returns {key: value} for keyed options and the bare value otherwise.
func (p PrimaryOption) Output() any {
	if p.hasKey {
		return map[string]any{p.key: p.value.Output()}
	}
	return p.value.Output()
}
