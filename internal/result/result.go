package result

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/nauticalab/pveconf/internal/config"
)

// Result is everything a caller needs to create or update one guest.
type Result struct {
	Changed    bool
	VMID       int
	Node       string
	Flavor     config.Flavor
	ForceStop  bool
	Firewall   map[string]any
	Root       config.DiskRecord
	Config     map[string]any
	ConfigText string
	ConfigList []string
	CLI        string
	CLIList    []string
	Template   *config.ImageDescriptor

	// Container only.
	LXC *config.ExtensionBundle

	// VM only.
	CloudInit config.CloudInitSlot
	Disks     []config.DiskRecord
	ISOs      []config.DiskRecord
}

// Assemble validates params, parses params.Config and collects the result.
// A config without a root disk is an error.
func Assemble(log logr.Logger, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	doc, err := config.ParseDocument(params.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config for %d: %w", params.VMID, err)
	}
	log.V(1).Info("parsed config", "vmid", params.VMID, "flavor", doc.Flavor(), "options", len(doc.Options()))

	root, err := doc.RootDisk()
	if err != nil {
		return nil, fmt.Errorf("config for %d: %w", params.VMID, err)
	}

	res := &Result{
		VMID:       params.VMID,
		Node:       params.Node,
		Flavor:     doc.Flavor(),
		ForceStop:  params.ForceStop,
		Firewall:   params.Firewall,
		Root:       root,
		Config:     doc.Map(),
		ConfigText: doc.ConfigText(),
		ConfigList: doc.ConfigList(),
		CLI:        doc.CLI(),
		CLIList:    doc.CLIList(),
	}
	if res.Firewall == nil {
		res.Firewall = map[string]any{}
	}
	if t := params.Template; t != nil {
		img := config.NewImageDescriptor(t.URL, t.Checksum, t.Algorithm)
		res.Template = &img
	}

	if doc.Flavor() == config.FlavorContainer {
		if params.CloudInit != "" {
			log.Info("cloud_init is ignored for containers", "vmid", params.VMID, "storage", params.CloudInit)
		}
		ext, err := doc.Extensions()
		if err != nil {
			return nil, fmt.Errorf("config for %d: %w", params.VMID, err)
		}
		res.LXC = &ext
		return res, nil
	}

	slot, err := doc.CloudInitSlot(params.CloudInit)
	if err != nil {
		return nil, fmt.Errorf("config for %d: %w", params.VMID, err)
	}
	res.CloudInit = slot
	res.Disks = doc.Disks()
	res.ISOs = doc.ISOs()
	log.V(1).Info("resolved storage", "vmid", params.VMID, "root", root.Slot, "disks", len(res.Disks), "isos", len(res.ISOs))
	return res, nil
}

// ToMap renders the result with the keys provisioning playbooks consume.
func (r *Result) ToMap() map[string]any {
	out := map[string]any{
		"changed":     r.Changed,
		"vmid":        r.VMID,
		"node":        r.Node,
		"force_stop":  r.ForceStop,
		"firewall":    r.Firewall,
		"root":        r.Root.ToMap(),
		"config":      r.Config,
		"config_text": r.ConfigText,
		"config_list": r.ConfigList,
		"cli":         r.CLI,
		"cli_list":    r.CLIList,
		"template":    map[string]any{},
	}
	if r.Template != nil {
		out["template"] = r.Template.ToMap()
	}

	if r.Flavor == config.FlavorContainer {
		if r.LXC != nil {
			out["lxc"] = r.LXC.ToMap()
		}
		return out
	}

	out["cloud_init"] = r.CloudInit.ToMap()
	out["disks"] = diskMaps(r.Disks)
	out["isos"] = diskMaps(r.ISOs)
	return out
}

func diskMaps(records []config.DiskRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.ToMap())
	}
	return out
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToMap())
}

func (r *Result) MarshalYAML() (any, error) {
	return r.ToMap(), nil
}
