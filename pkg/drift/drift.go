// Package drift classifies commit-check anomalies reported by the executor
// and resolves them by launching a targeted rediscovery, updating the
// database, and handing a recomputed plan back to the deployment
// orchestrator (pkg/deploy). spec.md §4.10.
package drift

import (
	"context"
	"fmt"

	"github.com/dnaas-network/bridge/pkg/classifier"
	"github.com/dnaas-network/bridge/pkg/discovery"
	"github.com/dnaas-network/bridge/pkg/executor"
	"github.com/dnaas-network/bridge/pkg/inventory"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/store"
	"github.com/dnaas-network/bridge/pkg/util"
)

// Resolver carries the dependencies a sync resolution needs: the fleet
// inventory and executor to run a targeted scan, the store to persist the
// rediscovered state transactionally.
type Resolver struct {
	Inventory *inventory.Inventory
	Executor  *executor.Executor
	Store     *store.Store
	ScanCfg   discovery.ScanConfig
}

// New constructs a Resolver.
func New(inv *inventory.Inventory, exec *executor.Executor, st *store.Store, scanCfg discovery.ScanConfig) *Resolver {
	return &Resolver{Inventory: inv, Executor: exec, Store: st, ScanCfg: scanCfg}
}

// Classify inspects one device's commit-check result and, if it signals
// drift, builds the DriftEvent describing it. Returns nil when the result
// is not a drift signal.
func Classify(deploymentID, device string, r executor.DeviceResult, bdName, ifaceHint string) *model.DriftEvent {
	switch {
	case r.CommitCheck == executor.OutcomeNoChange:
		return &model.DriftEvent{
			DeploymentID:    deploymentID,
			Kind:            model.DriftInterfaceAlreadyConfigured,
			Device:          device,
			Interface:       ifaceHint,
			DetectionSource: model.DetectionCommitCheck,
			Severity:        model.SeverityWarning,
			Expected:        "would_change",
			Observed:        "no configuration changes were made",
		}
	case r.Err != nil:
		return &model.DriftEvent{
			DeploymentID:    deploymentID,
			Kind:            model.DriftConfigurationMismatch,
			Device:          device,
			Interface:       ifaceHint,
			DetectionSource: model.DetectionDeploymentFailure,
			Severity:        model.SeverityCritical,
			Expected:        "committed",
			Observed:        r.Err.Error(),
		}
	default:
		return nil
	}
}

// ResolveOutcome is the result of applying a Resolution to a DriftEvent.
type ResolveOutcome struct {
	Resolution    model.Resolution
	UpdatedBD     *model.BridgeDomain // non-nil only after a successful Sync
	SkipDevice    string              // set for Skip: the device whose commands should be dropped from the plan
	SkipInterface string
	Abort         bool
}

// Resolve applies resolution to event. Sync re-runs a targeted scan scoped
// to bd's name and the affected interface's base name, reclassifies, and
// upserts the refreshed record — all inside one logical unit of work: if
// any step fails, the caller's existing *bd is left untouched (the targeted
// scan's own upsert is the only mutation, and it simply isn't called on
// failure), satisfying spec.md §4.10's "no half-updated state" requirement.
func (r *Resolver) Resolve(ctx context.Context, resolution model.Resolution, event *model.DriftEvent, bd *model.BridgeDomain) (*ResolveOutcome, error) {
	switch resolution {
	case model.ResolveSkip:
		return &ResolveOutcome{Resolution: resolution, SkipDevice: event.Device, SkipInterface: event.Interface}, nil

	case model.ResolveOverride:
		return &ResolveOutcome{Resolution: resolution}, nil

	case model.ResolveAbort:
		return &ResolveOutcome{Resolution: resolution, Abort: true}, nil

	case model.ResolveSync:
		updated, err := r.sync(ctx, event, bd)
		if err != nil {
			return nil, fmt.Errorf("sync resolution for drift event on %s: %w", event.Device, err)
		}
		return &ResolveOutcome{Resolution: resolution, UpdatedBD: updated}, nil

	default:
		return nil, fmt.Errorf("unknown drift resolution %q", resolution)
	}
}

func (r *Resolver) sync(ctx context.Context, event *model.DriftEvent, bd *model.BridgeDomain) (*model.BridgeDomain, error) {
	util.WithDevice(event.Device).WithField("bd", bd.Name).Info("drift: running targeted scan")

	sel := discovery.TargetSelector{BDName: bd.Name}
	if event.Interface != "" {
		sel.InterfaceBase = model.Interface{Name: event.Interface}.BaseName()
	}

	result, err := discovery.TargetedScan(ctx, r.Inventory, r.Executor, event.Device, sel, r.ScanCfg)
	if err != nil {
		return nil, fmt.Errorf("targeted scan: %w", err)
	}

	refreshed := findByConsolidationOrName(result.BridgeDomains, bd)
	if refreshed == nil {
		// The device no longer reports this BD at all; nothing to merge,
		// caller's existing record stands and the plan is re-validated
		// against it unchanged.
		return bd, nil
	}

	merged := mergeDiscovered(bd, refreshed)
	if err := r.Store.UpsertBridgeDomain(ctx, merged); err != nil {
		return nil, fmt.Errorf("persisting rediscovered bridge domain: %w", err)
	}
	return merged, nil
}

func findByConsolidationOrName(candidates []*model.BridgeDomain, want *model.BridgeDomain) *model.BridgeDomain {
	for _, c := range candidates {
		if c.Name == want.Name {
			return c
		}
		if want.Username != "" && c.Username == want.Username && c.VLANID == want.VLANID {
			return c
		}
	}
	return nil
}

// mergeDiscovered folds the targeted scan's fresh member list for the
// affected device into base, replacing only that device's members so other
// devices' state (not touched by this targeted scan) is preserved, then
// reclassifies the merged membership.
func mergeDiscovered(base, fresh *model.BridgeDomain) *model.BridgeDomain {
	merged := *base
	merged.ID = base.ID
	merged.CreatedAt = base.CreatedAt

	freshDevices := make(map[string]bool)
	for _, m := range fresh.Members {
		freshDevices[m.Device] = true
	}

	var kept []model.Interface
	for _, m := range base.Members {
		if !freshDevices[m.Device] {
			kept = append(kept, m)
		}
	}
	kept = append(kept, fresh.Members...)
	merged.Members = kept

	if merged.VLANID != 0 {
		merged.DNAASType = classifier.Classify(merged.Members, merged.VLANID).DNAASType
	}

	if merged.AccessDeviceCount() == 2 {
		merged.TopologyType = model.TopologyP2P
	} else {
		merged.TopologyType = model.TopologyP2MP
	}

	return &merged
}
