package config

import "strings"

// ImageDescriptor describes the template image a VM or container is built from.
type ImageDescriptor struct {
	URL       string `json:"url" yaml:"url"`
	Checksum  string `json:"checksum" yaml:"checksum"`
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	FileName  string `json:"file" yaml:"file"`
	BaseName  string `json:"name" yaml:"name"`
	Extension string `json:"extension" yaml:"extension"`
}

// NewImageDescriptor derives the file name parts from url, which may be a
// full URL or a bare file name. The algorithm is lowercased so it names the
// <algorithm>sum tool.
func NewImageDescriptor(url, checksum, algorithm string) ImageDescriptor {
	file := url
	if i := strings.LastIndex(url, "/"); i >= 0 {
		file = url[i+1:]
	}
	name, ext := splitFileName(file)
	return ImageDescriptor{
		URL:       url,
		Checksum:  checksum,
		Algorithm: strings.ToLower(algorithm),
		FileName:  file,
		BaseName:  name,
		Extension: ext,
	}
}

func (i ImageDescriptor) ToMap() map[string]any {
	return map[string]any{
		"url":       i.URL,
		"checksum":  i.Checksum,
		"algorithm": i.Algorithm,
		"file":      i.FileName,
		"name":      i.BaseName,
		"extension": i.Extension,
	}
}
