// Package deploy builds per-device DNOS command plans from an edit session
// and runs the two-phase commit-check/commit deployment protocol, handing
// off to pkg/drift whenever commit-check reports no configuration change.
package deploy

import (
	"fmt"
	"strings"

	"github.com/dnaas-network/bridge/pkg/executor"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/util"
)

// Plan translates bd's DNAAS type and session's ordered changes into a
// per-device executor.Plan. It is pure: the same (bd, session) pair always
// yields the same plan, which is the single most important invariant this
// package preserves — the planner must emit exactly what the executor later
// sends verbatim in both the commit-check and commit phases.
func Plan(bd *model.BridgeDomain, session *model.EditSession) (executor.Plan, error) {
	if err := validate(bd, session); err != nil {
		return nil, err
	}

	plan := executor.Plan{}
	for _, c := range session.Changes {
		cmds, err := commandsFor(bd, c)
		if err != nil {
			return nil, err
		}
		plan[c.Device] = append(plan[c.Device], cmds...)

		// MoveInterface also removes the source member; emit both sides
		// against their respective devices so cross-device moves split
		// correctly even though they're carried by a single Change.
		if c.Kind == model.ChangeMoveInterface && c.FromDevice != "" {
			removeCmds := removeCommandsFor(bd, c.FromDevice, c.FromInterface, c.VLANID)
			plan[c.FromDevice] = append(plan[c.FromDevice], removeCmds...)
		}
	}
	return plan, nil
}

// validate enforces the pre-stage-1 checks of spec.md §4.9: every interface
// a remove, modify or move-from change references must exist in bd's
// current membership (add targets are not checked against membership), no
// interface may be claimed twice in one session, and no add or move-to
// interface name may carry any "." VLAN suffix (the double-suffixing
// defect class the planner must prevent by construction).
func validate(bd *model.BridgeDomain, session *model.EditSession) error {
	vb := &util.ValidationBuilder{}

	claims := session.InterfaceClaims()
	for key, n := range claims {
		vb.Add(n <= 1, fmt.Sprintf("interface %s is claimed by more than one change in this session", key))
	}

	existing := make(map[string]bool, len(bd.Members))
	for _, m := range bd.Members {
		existing[m.Device+"/"+m.BaseName()] = true
	}

	for _, c := range session.Changes {
		switch c.Kind {
		case model.ChangeAddInterface:
			vb.Add(c.VLANID != nil || c.OuterVLAN != nil, fmt.Sprintf("add-interface change for %s/%s specifies no vlan", c.Device, c.Interface))
			vb.Add(!hasVLANSuffix(c.Interface), fmt.Sprintf("interface %s/%s already carries a vlan suffix; pass the base interface name", c.Device, c.Interface))
		case model.ChangeRemoveInterface, model.ChangeModifyInterface:
			vb.Add(existing[c.Device+"/"+c.Interface], fmt.Sprintf("interface %s/%s is not a current member of %s", c.Device, c.Interface, bd.Name))
		case model.ChangeMoveInterface:
			vb.Add(existing[c.FromDevice+"/"+c.FromInterface], fmt.Sprintf("interface %s/%s is not a current member of %s", c.FromDevice, c.FromInterface, bd.Name))
			vb.Add(!hasVLANSuffix(c.Interface), fmt.Sprintf("interface %s/%s already carries a vlan suffix; pass the base interface name", c.Device, c.Interface))
		}
	}

	return vb.Build()
}

func hasVLANSuffix(name string) bool {
	return strings.Contains(name, ".")
}

// commandsFor emits the command sequence for one Change, dispatching by the
// bridge domain's DNAAS type. Only SINGLE_TAGGED and the two QinQ variants
// are supported; UNKNOWN bridge domains cannot be planned against.
func commandsFor(bd *model.BridgeDomain, c model.Change) ([]string, error) {
	switch bd.DNAASType {
	case model.DNAASSingleTagged:
		return singleTaggedCommands(bd, c)
	case model.DNAASQinQSingle, model.DNAASQinQRange:
		return qinqCommands(bd, c)
	default:
		return nil, fmt.Errorf("cannot plan against bridge domain %s: dnaas_type %s has no command adapter", bd.Name, bd.DNAASType)
	}
}

// singleTaggedCommands implements spec.md §4.9's three-line block for
// SINGLE_TAGGED adds, and its natural counterparts for remove/modify/move.
// Commands are emitted in global configuration mode only; the adapter never
// interleaves a mode-transition command, and the VLAN suffix is appended
// exactly once to the interface's base name.
func singleTaggedCommands(bd *model.BridgeDomain, c model.Change) ([]string, error) {
	switch c.Kind {
	case model.ChangeAddInterface:
		if c.VLANID == nil {
			return nil, fmt.Errorf("add-interface for %s/%s: vlan_id required for SINGLE_TAGGED", c.Device, c.Interface)
		}
		sub := fmt.Sprintf("%s.%d", c.Interface, *c.VLANID)
		return []string{
			fmt.Sprintf("network-services bridge-domain instance %s interface %s", bd.Name, sub),
			fmt.Sprintf("interfaces %s l2-service enabled", sub),
			fmt.Sprintf("interfaces %s vlan-id %d", sub, *c.VLANID),
		}, nil

	case model.ChangeRemoveInterface:
		return []string{
			fmt.Sprintf("no network-services bridge-domain instance %s interface %s", bd.Name, c.Interface),
		}, nil

	case model.ChangeModifyInterface:
		if c.VLANID == nil {
			return nil, fmt.Errorf("modify-interface for %s/%s: vlan_id required for SINGLE_TAGGED", c.Device, c.Interface)
		}
		return []string{
			fmt.Sprintf("interfaces %s vlan-id %d", c.Interface, *c.VLANID),
		}, nil

	case model.ChangeMoveInterface:
		if c.VLANID == nil {
			return nil, fmt.Errorf("move-interface for %s/%s: vlan_id required for SINGLE_TAGGED", c.Device, c.Interface)
		}
		sub := fmt.Sprintf("%s.%d", c.Interface, *c.VLANID)
		return []string{
			fmt.Sprintf("network-services bridge-domain instance %s interface %s", bd.Name, sub),
			fmt.Sprintf("interfaces %s l2-service enabled", sub),
			fmt.Sprintf("interfaces %s vlan-id %d", sub, *c.VLANID),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported change kind %q", c.Kind)
	}
}

// removeCommandsFor emits the teardown side of a MoveInterface change
// against the interface's origin device.
func removeCommandsFor(bd *model.BridgeDomain, device, iface string, vlan *int) []string {
	return []string{
		fmt.Sprintf("no network-services bridge-domain instance %s interface %s", bd.Name, iface),
	}
}

// qinqCommands implements the QinQ variant of the external interface
// contract (spec.md §6): the sub-interface name carries both tags
// (<if>.<outer>.<inner>) and a vlan-tags statement binds them explicitly.
func qinqCommands(bd *model.BridgeDomain, c model.Change) ([]string, error) {
	switch c.Kind {
	case model.ChangeAddInterface, model.ChangeMoveInterface:
		if c.OuterVLAN == nil || c.InnerVLAN == nil {
			return nil, fmt.Errorf("add/move-interface for %s/%s: outer and inner tags required for QinQ", c.Device, c.Interface)
		}
		sub := fmt.Sprintf("%s.%d.%d", c.Interface, *c.OuterVLAN, *c.InnerVLAN)
		return []string{
			fmt.Sprintf("network-services bridge-domain instance %s interface %s", bd.Name, sub),
			fmt.Sprintf("interfaces %s l2-service enabled", sub),
			fmt.Sprintf("interfaces %s vlan-tags outer-tag %d inner-tag %d", sub, *c.OuterVLAN, *c.InnerVLAN),
		}, nil

	case model.ChangeRemoveInterface:
		return []string{
			fmt.Sprintf("no network-services bridge-domain instance %s interface %s", bd.Name, c.Interface),
		}, nil

	case model.ChangeModifyInterface:
		if c.OuterVLAN == nil || c.InnerVLAN == nil {
			return nil, fmt.Errorf("modify-interface for %s/%s: outer and inner tags required for QinQ", c.Device, c.Interface)
		}
		return []string{
			fmt.Sprintf("interfaces %s vlan-tags outer-tag %d inner-tag %d", c.Interface, *c.OuterVLAN, *c.InnerVLAN),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported change kind %q", c.Kind)
	}
}
