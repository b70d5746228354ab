package config

import (
	"slices"
	"strings"
)

// Syntax is the surface form a config line was written in.
type Syntax int

const (
	// SyntaxFile is the qm.conf / pct.conf form "key: value".
	SyntaxFile Syntax = iota
	// SyntaxCLI is the qm / pct flag form "--key value".
	SyntaxCLI
)

// ConfigOption is one parsed config line: a key, its category, and the
// primary options of its value in input order.
type ConfigOption struct {
	raw      string
	flavor   Flavor
	syntax   Syntax
	key      string
	category Category
	values   []PrimaryOption
}

// ParseConfigOption parses a single line in either file or CLI syntax using
// the default optional-key table.
func ParseConfigOption(line string, flavor Flavor) (ConfigOption, error) {
	return parseConfigOption(line, flavor, DefaultOptionalKeys)
}

func parseConfigOption(line string, flavor Flavor, keys OptionalKeys) (ConfigOption, error) {
	line = strings.TrimSpace(line)
	opt := ConfigOption{raw: line, flavor: flavor}

	if text, ok := strings.CutPrefix(line, "#"); ok {
		opt.category = CategoryComment
		opt.values = []PrimaryOption{CommentOption(text)}
		return opt, nil
	}

	key, value, syntax, err := splitLine(line)
	if err != nil {
		return ConfigOption{}, err
	}
	opt.key = key
	opt.syntax = syntax

	switch {
	case strings.HasPrefix(key, extensionPrefix):
		opt.category = CategoryExtension
		opt.values = []PrimaryOption{ExtensionOption(value)}
		return opt, nil
	case strings.HasPrefix(key, tertiaryPrefix):
		opt.category = CategoryTertiaryOnly
		opt.values = []PrimaryOption{ParsePrimaryOption(value)}
		return opt, nil
	}

	segments := strings.Split(value, ",")
	if implied := keys.Resolve(key, segments[0], flavor); implied != "" {
		first := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(first, implied+"=") {
			segments[0] = implied + "=" + first
			opt.raw = renderLine(syntax, key, strings.Join(segments, ","))
		}
	}

	opt.values = make([]PrimaryOption, 0, len(segments))
	for _, segment := range segments {
		opt.values = append(opt.values, ParsePrimaryOption(segment))
	}

	category, ok := classify(classificationRules, key)
	if !ok {
		return ConfigOption{}, newParseError(line, "no classification rule matches key %q", key)
	}
	opt.category = category
	return opt, nil
}

// splitLine separates a line into key and value. CLI lines split on the first
// space after the leading dashes, file lines on the first ':'.
func splitLine(line string) (key, value string, syntax Syntax, err error) {
	if rest, ok := strings.CutPrefix(line, "--"); ok {
		key, value, found := strings.Cut(rest, " ")
		if !found {
			return "", "", SyntaxCLI, newParseError(line, "missing value after flag")
		}
		key = strings.TrimLeft(strings.TrimSpace(key), "-")
		if key == "" {
			return "", "", SyntaxCLI, newParseError(line, "empty key")
		}
		return key, strings.TrimSpace(value), SyntaxCLI, nil
	}

	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", SyntaxFile, newParseError(line, "missing ':' separator")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", SyntaxFile, newParseError(line, "empty key")
	}
	return key, strings.TrimSpace(value), SyntaxFile, nil
}

func renderLine(syntax Syntax, key, value string) string {
	if syntax == SyntaxCLI {
		return "--" + key + " " + value
	}
	return key + ": " + value
}

// Raw returns the line as parsed, rewritten to carry any inferred key.
func (o ConfigOption) Raw() string { return o.raw }

// Key returns the line key; it is empty for comments.
func (o ConfigOption) Key() string { return o.key }

func (o ConfigOption) Category() Category { return o.category }

func (o ConfigOption) Flavor() Flavor { return o.flavor }

// Syntax reports whether the line was given in file or CLI form.
func (o ConfigOption) Syntax() Syntax { return o.syntax }

// Values returns a copy of the primary options in input order.
func (o ConfigOption) Values() []PrimaryOption { return slices.Clone(o.values) }

// IsComment reports whether the line is a '#' comment.
func (o ConfigOption) IsComment() bool { return o.category == CategoryComment }

// Option returns the first primary option with the given key.
func (o ConfigOption) Option(key string) (PrimaryOption, bool) {
	for _, v := range o.values {
		if k, ok := v.Key(); ok && k == key {
			return v, true
		}
	}
	return PrimaryOption{}, false
}

// Value returns the canonical value text: primary options joined with ','.
func (o ConfigOption) Value() string {
	parts := make([]string, len(o.values))
	for i, v := range o.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ",")
}

// ConfigLine renders the option as a config file line.
func (o ConfigOption) ConfigLine() string {
	if o.category == CategoryComment {
		return "# " + o.Value()
	}
	return o.key + ": " + o.Value()
}

// CLILine renders the option as a command line flag. Comments have no CLI
// form and return ErrCommentNotExportable.
func (o ConfigOption) CLILine() (string, error) {
	if o.category == CategoryComment {
		return "", ErrCommentNotExportable
	}
	return o.cliLine(), nil
}

func (o ConfigOption) cliLine() string {
	return "--" + o.key + " " + o.Value()
}

// ToMap returns the option as {key: value}. The value is a scalar (or list)
// for a single bare value and a map of option keys otherwise. Comments and
// extension text are left out of the inner map.
//
// A line with several bare values, or bare values mixed with keyed ones
// ("virtio,bridge=vmbr0" on a container net line), has no map form and
// returns the canonical value text instead: {"net0": "virtio,bridge=vmbr0"}.
func (o ConfigOption) ToMap() map[string]any {
	inner := map[string]any{}
	var bare []PrimaryOption
	for _, v := range o.values {
		switch v.Kind() {
		case KindComment, KindExtension:
			continue
		case KindValueOnly:
			bare = append(bare, v)
		default:
			key, _ := v.Key()
			inner[key] = v.Value().Output()
		}
	}

	switch {
	case len(bare) == 1 && len(inner) == 0:
		return map[string]any{o.key: bare[0].Output()}
	case len(bare) > 0:
		// Bare values mixed with keyed ones have no map form; keep the text.
		return map[string]any{o.key: o.Value()}
	}
	return map[string]any{o.key: inner}
}
