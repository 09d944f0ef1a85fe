package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/dnaas-network/bridge/pkg/drift"
	"github.com/dnaas-network/bridge/pkg/executor"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/store"
	"github.com/dnaas-network/bridge/pkg/util"
)

// MaxDriftRetries bounds how many times Deploy will loop back through
// commit-check after a sync resolution before giving up, so a device stuck
// reporting drift after every resync cannot spin the orchestrator forever.
const MaxDriftRetries = 3

// DriftDecider is consulted whenever commit-check reports drift on a
// device; it lets the caller (typically a CLI prompt or an embedding
// service) choose one of the four resolutions from spec.md §4.10.
type DriftDecider func(ctx context.Context, event *model.DriftEvent) model.Resolution

// Orchestrator runs the two-phase deployment protocol.
type Orchestrator struct {
	Executor *executor.Executor
	Store    *store.Store
	Drift    *drift.Resolver
}

// New constructs an Orchestrator.
func New(exec *executor.Executor, st *store.Store, driftResolver *drift.Resolver) *Orchestrator {
	return &Orchestrator{Executor: exec, Store: st, Drift: driftResolver}
}

// Deploy runs the full two-phase protocol for bd/session: plan, commit-check
// every target device in parallel, route any no-change signal to the drift
// resolver, and — only if every device ultimately reports would_change, or
// the decider answers a no-change report with override — commit the plan. The deployment record is persisted at every stage
// transition (spec.md §4.7 "append per-stage updates").
func (o *Orchestrator) Deploy(ctx context.Context, bd *model.BridgeDomain, session *model.EditSession, decide DriftDecider) (*model.DeploymentRecord, error) {
	plan, err := Plan(bd, session)
	if err != nil {
		return nil, fmt.Errorf("planning deployment: %w", err)
	}

	dep := &model.DeploymentRecord{
		BridgeDomainID: bd.ID,
		SessionID:      session.ID,
		Plan:           plan,
		Stage:          model.StagePlanned,
		StartedAt:      time.Now().UTC(),
	}
	if err := o.Store.AppendDeployment(ctx, dep); err != nil {
		return nil, fmt.Errorf("recording deployment: %w", err)
	}

	for attempt := 0; ; attempt++ {
		checkResults := o.Executor.ExecuteParallel(ctx, plan, executor.ModeCommitCheck)
		dep.CommitCheck = toDeviceResults(checkResults)

		if anyError(checkResults) {
			dep.Stage = model.StageAborted
			o.finish(ctx, dep)
			return dep, nil
		}

		driftDevice, driftResult, driftIface := firstDrift(checkResults, plan)
		if driftDevice == "" {
			break // every device reported would_change; proceed to commit
		}

		if attempt >= MaxDriftRetries {
			dep.Stage = model.StageAborted
			o.finish(ctx, dep)
			return dep, fmt.Errorf("deployment %s: exceeded %d drift-resolution retries on device %s", dep.ID, MaxDriftRetries, driftDevice)
		}

		event := drift.Classify(dep.ID, driftDevice, driftResult, bd.Name, driftIface)
		if event == nil {
			break
		}
		if err := o.Store.AppendDriftEvent(ctx, event); err != nil {
			return dep, fmt.Errorf("recording drift event: %w", err)
		}
		dep.DriftEvents = append(dep.DriftEvents, event.ID)

		resolution := model.ResolveSync
		if decide != nil {
			resolution = decide(ctx, event)
		}

		outcome, err := o.Drift.Resolve(ctx, resolution, event, bd)
		if err != nil {
			dep.Stage = model.StageFailed
			o.finish(ctx, dep)
			return dep, fmt.Errorf("resolving drift: %w", err)
		}

		if outcome.Abort {
			dep.Stage = model.StageAborted
			o.finish(ctx, dep)
			return dep, nil
		}

		if outcome.Resolution == model.ResolveOverride {
			break // override: commit the current plan despite the no-change report
		}

		switch {
		case outcome.UpdatedBD != nil:
			*bd = *outcome.UpdatedBD
			plan, err = Plan(bd, replan(session, bd))
			if err != nil {
				return dep, fmt.Errorf("replanning after sync: %w", err)
			}
			dep.Plan = plan
		case outcome.SkipDevice != "":
			session = dropClaim(session, outcome.SkipDevice, outcome.SkipInterface)
			plan, err = Plan(bd, session)
			if err != nil {
				return dep, fmt.Errorf("replanning after skip: %w", err)
			}
			dep.Plan = plan
		}
	}

	dep.Stage = model.StageCheckOK
	o.finish(ctx, dep)

	commitResults := o.Executor.ExecuteParallel(ctx, plan, executor.ModeCommit)
	dep.Commit = toDeviceResults(commitResults)

	if allCommitted(dep.Commit) {
		dep.Stage = model.StageCommitted
	} else {
		dep.Stage = model.StageFailed
		dep.RollbackPlan = rollbackPlanFor(plan, dep.Commit)
	}
	o.finish(ctx, dep)

	return dep, nil
}

func (o *Orchestrator) finish(ctx context.Context, dep *model.DeploymentRecord) {
	results := dep.Commit
	if results == nil {
		results = dep.CommitCheck
	}
	if err := o.Store.UpdateDeploymentStage(ctx, dep.ID, dep.Stage, results); err != nil {
		util.WithFields(map[string]interface{}{"deployment": dep.ID, "stage": dep.Stage}).Warnf("recording deployment stage: %v", err)
	}
}

func toDeviceResults(results map[string]executor.DeviceResult) map[string]model.DeviceDeployResult {
	out := make(map[string]model.DeviceDeployResult, len(results))
	for dev, r := range results {
		dr := model.DeviceDeployResult{Device: dev, Committed: r.Committed, Cancelled: r.Cancelled}
		if r.Err != nil {
			dr.Err = r.Err.Error()
		}
		out[dev] = dr
	}
	return out
}

// anyError reports whether any device's commit-check returned a hard
// protocol/connectivity error — distinct from the no_change drift signal,
// which carries no Err and is handled by firstDrift instead. Per spec.md
// §4.9, any such error aborts the deployment before any device commits.
func anyError(results map[string]executor.DeviceResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// firstDrift returns the first device (in plan's key order is unspecified
// per spec.md §5, so callers must not rely on which one is picked first
// when several drift simultaneously) whose commit-check reported no_change,
// along with a representative interface name for the drift event.
func firstDrift(results map[string]executor.DeviceResult, plan executor.Plan) (device string, result executor.DeviceResult, iface string) {
	for dev, r := range results {
		if r.CommitCheck == executor.OutcomeNoChange {
			return dev, r, representativeInterface(plan[dev])
		}
	}
	return "", executor.DeviceResult{}, ""
}

func representativeInterface(cmds []string) string {
	if len(cmds) == 0 {
		return ""
	}
	// The first command of a SINGLE_TAGGED/QinQ add names the sub-interface
	// as its last whitespace-delimited field.
	fields := splitFields(cmds[0])
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func splitFields(s string) []string {
	var out []string
	start := -1
	for i, c := range s {
		if c == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// replan rebuilds an EditSession against an updated bd, dropping any change
// whose target interface the sync discovered to already be a member (the
// empty-change-set idempotence law of spec.md §8: a fully-synced session
// replans to nothing left to send).
func replan(session *model.EditSession, bd *model.BridgeDomain) *model.EditSession {
	already := make(map[string]bool, len(bd.Members))
	for _, m := range bd.Members {
		already[m.Device+"/"+m.BaseName()] = true
	}

	out := &model.EditSession{ID: session.ID, BridgeDomainID: session.BridgeDomainID, AssignmentID: session.AssignmentID}
	for _, c := range session.Changes {
		if c.Kind == model.ChangeAddInterface && already[c.Device+"/"+c.Interface] {
			continue
		}
		out.Changes = append(out.Changes, c)
	}
	return out
}

func dropClaim(session *model.EditSession, device, iface string) *model.EditSession {
	out := &model.EditSession{ID: session.ID, BridgeDomainID: session.BridgeDomainID, AssignmentID: session.AssignmentID}
	for _, c := range session.Changes {
		if c.Device == device && (iface == "" || c.Interface == iface) {
			continue
		}
		out.Changes = append(out.Changes, c)
	}
	return out
}

func allCommitted(results map[string]model.DeviceDeployResult) bool {
	for _, r := range results {
		if !r.Committed {
			return false
		}
	}
	return true
}

// rollbackPlanFor builds an operator-facing plan that undoes the change on
// every device that *did* commit, per spec.md §4.9/§8 scenario 5 — no
// automatic rollback is executed, only the plan is generated.
func rollbackPlanFor(plan executor.Plan, results map[string]model.DeviceDeployResult) executor.Plan {
	rollback := executor.Plan{}
	for dev, r := range results {
		if !r.Committed {
			continue
		}
		cmds := plan[dev]
		undo := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			undo = append(undo, "no "+cmd)
		}
		rollback[dev] = undo
	}
	return rollback
}
