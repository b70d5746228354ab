package config

import (
	"maps"
	"slices"
	"strings"
)

// cliMarker separates flags in the qm / pct command line form.
const cliMarker = " --"

// Document is a parsed qm.conf or pct.conf, or the equivalent command line.
// Options keep input order; every query below is computed from them on call.
type Document struct {
	flavor  Flavor
	options []ConfigOption
}

// ParseDocument parses configuration text in file form (one "key: value" per
// line) or CLI form ("--key value" flags, optionally after a program name
// such as "qm create 100").
//
// The flavor is decided before any line is parsed: a document with a rootfs
// key is a container config, anything else is a VM config.
func ParseDocument(raw string) (*Document, error) {
	return parseDocument(raw, DefaultOptionalKeys)
}

func parseDocument(raw string, keys OptionalKeys) (*Document, error) {
	tokens := tokenize(raw)
	doc := &Document{flavor: detectFlavor(tokens)}

	doc.options = make([]ConfigOption, 0, len(tokens))
	for _, token := range tokens {
		opt, err := parseConfigOption(token, doc.flavor, keys)
		if err != nil {
			return nil, err
		}
		doc.options = append(doc.options, opt)
	}
	return doc, nil
}

// tokenize splits raw input into one token per config line.
func tokenize(raw string) []string {
	if strings.Contains(raw, cliMarker) {
		return tokenizeCLI(raw)
	}

	var tokens []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		tokens = append(tokens, line)
	}
	return tokens
}

// tokenizeCLI splits "qm create 100 --name web --memory 512" into
// ["--name web", "--memory 512"]. Anything before the first flag is the
// program invocation and is dropped.
func tokenizeCLI(raw string) []string {
	parts := strings.Split(raw, cliMarker)
	tokens := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == 0 {
			if !strings.HasPrefix(part, "--") {
				continue
			}
			tokens = append(tokens, part)
			continue
		}
		if part == "" {
			continue
		}
		tokens = append(tokens, "--"+part)
	}
	return tokens
}

func detectFlavor(tokens []string) Flavor {
	for _, token := range tokens {
		if tokenKey(token) == rootfsKey {
			return FlavorContainer
		}
	}
	return FlavorVM
}

// tokenKey returns the key of a token without parsing its value. Comments
// and malformed tokens have no key.
func tokenKey(token string) string {
	if strings.HasPrefix(token, "#") {
		return ""
	}
	if rest, ok := strings.CutPrefix(token, "--"); ok {
		key, _, _ := strings.Cut(rest, " ")
		return strings.TrimLeft(strings.TrimSpace(key), "-")
	}
	key, _, found := strings.Cut(token, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(key)
}

// Flavor reports whether the document is a VM or container config.
func (d *Document) Flavor() Flavor { return d.flavor }

// Options returns a copy of the parsed lines in input order.
func (d *Document) Options() []ConfigOption { return slices.Clone(d.options) }

// Option returns the first line with the given key.
func (d *Document) Option(key string) (ConfigOption, bool) {
	for _, opt := range d.options {
		if opt.key == key && !opt.IsComment() {
			return opt, true
		}
	}
	return ConfigOption{}, false
}

// ConfigList renders every line, comments included, in config file form.
func (d *Document) ConfigList() []string {
	lines := make([]string, 0, len(d.options))
	for _, opt := range d.options {
		lines = append(lines, opt.ConfigLine())
	}
	return lines
}

// ConfigText renders the document as a config file without a trailing newline.
func (d *Document) ConfigText() string {
	return strings.Join(d.ConfigList(), "\n")
}

// CLIList renders every non-comment line as a command line flag.
func (d *Document) CLIList() []string {
	flags := make([]string, 0, len(d.options))
	for _, opt := range d.options {
		if opt.IsComment() {
			continue
		}
		flags = append(flags, opt.cliLine())
	}
	return flags
}

// CLI renders the document as a single space separated flag string.
func (d *Document) CLI() string {
	return strings.Join(d.CLIList(), " ")
}

// Map merges the map form of every non-comment line. A key given twice keeps
// its last value.
func (d *Document) Map() map[string]any {
	out := map[string]any{}
	for _, opt := range d.options {
		if opt.IsComment() {
			continue
		}
		maps.Copy(out, opt.ToMap())
	}
	return out
}
