// Package discovery orchestrates fleet-wide device scans and consolidates
// per-device bridge-domain fragments into canonical records keyed by
// (username, vlan_id).
package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/dnaas-network/bridge/pkg/classifier"
	"github.com/dnaas-network/bridge/pkg/dnosparse"
	"github.com/dnaas-network/bridge/pkg/executor"
	"github.com/dnaas-network/bridge/pkg/inventory"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/util"
)

const (
	cmdBDShowAll       = "show network-services bridge-domain | no-more"
	cmdInterfacesShow  = "show interfaces | no-more"
)

// ScanConfig parameterizes a scan; GlobalVLANMin/Max define the configured
// "global range" used for scope derivation.
type ScanConfig struct {
	GlobalVLANMin int
	GlobalVLANMax int
}

// NewScanConfigFromRange builds a ScanConfig from a range spec like
// "2000-3999" (pkg/util's range grammar), taking the min and max of the
// expanded set.
func NewScanConfigFromRange(spec string) (ScanConfig, error) {
	vlans, err := util.ExpandVLANRange(spec)
	if err != nil {
		return ScanConfig{}, fmt.Errorf("parsing global vlan range %q: %w", spec, err)
	}
	if len(vlans) == 0 {
		return ScanConfig{}, fmt.Errorf("empty global vlan range %q", spec)
	}
	min, max := vlans[0], vlans[0]
	for _, v := range vlans {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return ScanConfig{GlobalVLANMin: min, GlobalVLANMax: max}, nil
}

// TargetSelector scopes a TargetedScan to one device and either a BD name or
// an interface base-name pattern.
type TargetSelector struct {
	BDName           string
	InterfaceBase    string
}

// ScanResult is the output of a scan: the canonical bridge domains produced
// by consolidation, kept strictly separate from scan-level bookkeeping so
// the two can never accidentally be merged into one ambiguous map.
type ScanResult struct {
	BridgeDomains []*model.BridgeDomain
	Metadata      model.DiscoveryMetadata
}

// rawFragment is one device-local BD observation before consolidation.
type rawFragment struct {
	Device     string
	Name       string
	AdminState model.AdminState
	IfNames    []string
	Warnings   []dnosparse.ParseWarning
}

// FullScan queries every device in the inventory, parses and classifies
// each device's bridge-domain fragments, and consolidates them into
// canonical records. A slow or unreachable device never blocks the others;
// its failure is recorded in Metadata.DevicesFailed.
func FullScan(ctx context.Context, inv *inventory.Inventory, exec *executor.Executor, cfg ScanConfig) (*ScanResult, error) {
	plan := executor.Plan{}
	for _, d := range inv.Devices() {
		plan[d.Name] = []string{cmdBDShowAll, cmdInterfacesShow}
	}

	results := exec.ExecuteParallel(ctx, plan, executor.ModeQuery)

	var fragments []rawFragment
	ifRecordsByDevice := make(map[string][]dnosparse.InterfaceRecord)
	meta := model.DiscoveryMetadata{ScannedAt: time.Now()}

	for device, r := range results {
		if r.Err != nil || r.Cancelled || len(r.Output) < 2 {
			meta.DevicesFailed = append(meta.DevicesFailed, device)
			continue
		}
		meta.DevicesScanned = append(meta.DevicesScanned, device)

		bdFrags, bdWarnings := dnosparse.ParseBridgeDomainShow(r.Output[0])
		ifRecs, _ := dnosparse.ParseInterfacesShow(r.Output[1])
		ifRecordsByDevice[device] = ifRecs

		for _, f := range bdFrags {
			fragments = append(fragments, rawFragment{
				Device:     device,
				Name:       f.Name,
				AdminState: f.AdminState,
				IfNames:    f.Interfaces,
				Warnings:   bdWarnings,
			})
		}
	}

	sort.Strings(meta.DevicesScanned)
	sort.Strings(meta.DevicesFailed)

	bds := consolidate(fragments, ifRecordsByDevice, cfg)

	return &ScanResult{BridgeDomains: bds, Metadata: meta}, nil
}

// TargetedScan runs only the minimal commands needed to re-examine one
// device's view of a single BD and/or interface pattern, used by the drift
// handler (C10) to resolve a commit-check anomaly without a full fleet scan.
func TargetedScan(ctx context.Context, inv *inventory.Inventory, exec *executor.Executor, device string, sel TargetSelector, cfg ScanConfig) (*ScanResult, error) {
	if _, ok := inv.Get(device); !ok {
		return nil, fmt.Errorf("targeted scan: unknown device %q", device)
	}

	var cmds []string
	if sel.BDName != "" {
		cmds = append(cmds, fmt.Sprintf("show network-services bridge-domain %s", sel.BDName))
	}
	if sel.InterfaceBase != "" {
		cmds = append(cmds, fmt.Sprintf("show interfaces | no-more | i %s", sel.InterfaceBase))
	}
	if len(cmds) == 0 {
		return nil, fmt.Errorf("targeted scan: selector must name a BD or an interface pattern")
	}

	plan := executor.Plan{device: cmds}
	results := exec.ExecuteParallel(ctx, plan, executor.ModeQuery)
	r := results[device]
	meta := model.DiscoveryMetadata{ScannedAt: time.Now()}
	if r.Err != nil || r.Cancelled {
		meta.DevicesFailed = []string{device}
		return &ScanResult{Metadata: meta}, nil
	}
	meta.DevicesScanned = []string{device}

	var fragments []rawFragment
	ifRecordsByDevice := make(map[string][]dnosparse.InterfaceRecord)

	idx := 0
	if sel.BDName != "" {
		bdFrags, bdWarnings := dnosparse.ParseBridgeDomainShow(r.Output[idx])
		for _, f := range bdFrags {
			fragments = append(fragments, rawFragment{Device: device, Name: f.Name, AdminState: f.AdminState, IfNames: f.Interfaces, Warnings: bdWarnings})
		}
		idx++
	}
	if sel.InterfaceBase != "" {
		ifRecs, _ := dnosparse.ParseInterfacesShow(r.Output[idx])
		ifRecordsByDevice[device] = ifRecs
	}

	bds := consolidate(fragments, ifRecordsByDevice, cfg)
	return &ScanResult{BridgeDomains: bds, Metadata: meta}, nil
}

var (
	globalNameRe = regexp.MustCompile(`^g_([A-Za-z0-9]+)_v(\d+)`)
	localNameRe  = regexp.MustCompile(`^l_([A-Za-z0-9]+)_(.+)$`)
	userVlanRe   = regexp.MustCompile(`^([A-Za-z0-9]+)_(\d+)`)
	vlanOnlyRe   = regexp.MustCompile(`(?i)^v(?:lan)?[-_]?(\d+)$`)
)

// consolidationKey derives (user, vlan, key) from a device-local BD name
// per the naming conventions in the external contract. ok is false when no
// rule matched, signalling the fragment should not be merged with any
// other and should instead be kept under its own original name.
func consolidationKey(name string) (user string, vlan *int, key string, ok bool) {
	if m := globalNameRe.FindStringSubmatch(name); m != nil {
		v := atoiMust(m[2])
		return m[1], &v, fmt.Sprintf("%s_v%d", m[1], v), true
	}
	if m := localNameRe.FindStringSubmatch(name); m != nil {
		return m[1], nil, fmt.Sprintf("%s_no_vlan", m[1]), true
	}
	if m := userVlanRe.FindStringSubmatch(name); m != nil {
		v := atoiMust(m[2])
		return m[1], &v, fmt.Sprintf("%s_v%d", m[1], v), true
	}
	if m := vlanOnlyRe.FindStringSubmatch(name); m != nil {
		v := atoiMust(m[1])
		return "", &v, fmt.Sprintf("unknown_user_v%d", v), true
	}
	return "", nil, "", false
}

func atoiMust(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// consolidate groups raw fragments by consolidation key and merges each
// group into one canonical BridgeDomain. Fragments are sorted by
// (device_name, bd_name, interface_name) before grouping so the merge is
// order-independent given a fixed input set.
func consolidate(fragments []rawFragment, ifRecords map[string][]dnosparse.InterfaceRecord, cfg ScanConfig) []*model.BridgeDomain {
	sort.Slice(fragments, func(i, j int) bool {
		if fragments[i].Device != fragments[j].Device {
			return fragments[i].Device < fragments[j].Device
		}
		if fragments[i].Name != fragments[j].Name {
			return fragments[i].Name < fragments[j].Name
		}
		a, b := fragments[i].IfNames, fragments[j].IfNames
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})

	type group struct {
		user    string
		vlan    *int
		key     string
		members []rawFragment
	}

	groups := make(map[string]*group)
	var groupOrder []string

	noMergeSeq := 0
	for _, f := range fragments {
		user, vlan, key, ok := consolidationKey(f.Name)
		if !ok {
			noMergeSeq++
			key = fmt.Sprintf("nomerge:%d:%s:%s", noMergeSeq, f.Device, f.Name)
		}
		g, exists := groups[key]
		if !exists {
			g = &group{user: user, vlan: vlan, key: key}
			groups[key] = g
			groupOrder = append(groupOrder, key)
		}
		g.members = append(g.members, f)
	}

	var out []*model.BridgeDomain
	for _, key := range groupOrder {
		g := groups[key]
		out = append(out, buildCanonical(g.user, g.vlan, g.key, g.members, ifRecords, cfg))
	}
	return out
}

func buildCanonical(user string, vlan *int, key string, frags []rawFragment, ifRecords map[string][]dnosparse.InterfaceRecord, cfg ScanConfig) *model.BridgeDomain {
	bd := &model.BridgeDomain{
		Username: user,
		ConsolidationInfo: model.ConsolidationInfo{
			ConsolidationKey:  key,
			ConsolidatedCount: len(frags),
		},
	}

	seenNames := make(map[string]bool)
	var devicesScanned []string
	for _, f := range frags {
		if !seenNames[f.Name] {
			bd.ConsolidationInfo.OriginalNames = append(bd.ConsolidationInfo.OriginalNames, f.Name)
			seenNames[f.Name] = true
		}
		devicesScanned = append(devicesScanned, f.Device)
		if f.AdminState != "" {
			bd.AdminState = f.AdminState
		}
		for _, w := range f.Warnings {
			bd.Warnings = append(bd.Warnings, fmt.Sprintf("%s: %s", w.Reason, w.Line))
		}

		recs := ifRecords[f.Device]
		for _, ifName := range f.IfNames {
			rec := findInterfaceRecord(recs, ifName)
			member := model.Interface{
				Device: f.Device,
				Name:   ifName,
				Role:   model.RoleAccess,
			}
			if rec != nil {
				member.Kind = rec.Kind
				member.AdminStatus = rec.AdminStatus
				member.OperStatus = rec.OperStatus
				member.VLANID = rec.VLANID
				member.L2ServiceEnabled = rec.L2Service
			}
			bd.Members = append(bd.Members, member)
		}
	}

	if vlan != nil {
		bd.VLANID = *vlan
		if *vlan >= cfg.GlobalVLANMin && *vlan <= cfg.GlobalVLANMax {
			bd.Scope = model.ScopeGlobal
		} else {
			bd.Scope = model.ScopeLocal
		}
	} else {
		bd.Scope = model.ScopeUnknown
	}

	if bd.Scope == model.ScopeGlobal {
		bd.Name = fmt.Sprintf("g_%s_v%d", user, bd.VLANID)
	} else if len(bd.ConsolidationInfo.OriginalNames) > 0 {
		bd.Name = bd.ConsolidationInfo.OriginalNames[0]
	}

	classification := model.Classification{DNAASType: model.DNAASUnknown}
	if vlan != nil {
		classification = classifier.Classify(bd.Members, bd.VLANID)
	}
	bd.DNAASType = classification.DNAASType

	if bd.AccessDeviceCount() == 2 {
		bd.TopologyType = model.TopologyP2P
	} else {
		bd.TopologyType = model.TopologyP2MP
	}

	sort.Strings(devicesScanned)
	bd.DiscoveryMetadata = model.DiscoveryMetadata{DevicesScanned: dedupStrings(devicesScanned)}

	return bd
}

func findInterfaceRecord(recs []dnosparse.InterfaceRecord, name string) *dnosparse.InterfaceRecord {
	for i := range recs {
		if recs[i].Name == name {
			return &recs[i]
		}
	}
	return nil
}

func dedupStrings(sorted []string) []string {
	if len(sorted) == 0 {
		return nil
	}
	out := []string{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			out = append(out, sorted[i])
		}
	}
	return out
}
