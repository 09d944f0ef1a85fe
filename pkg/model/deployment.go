package model

import "time"

// DeploymentStage is the lifecycle state of a DeploymentRecord.
type DeploymentStage string

const (
	StagePlanned   DeploymentStage = "planned"
	StageCheckOK   DeploymentStage = "check_ok"
	StageCommitted DeploymentStage = "committed"
	StageFailed    DeploymentStage = "failed"
	StageAborted   DeploymentStage = "aborted"
)

// DeviceDeployResult is the per-device outcome of one deployment phase.
type DeviceDeployResult struct {
	Device    string
	Committed bool
	Err       string
	Cancelled bool
}

// DeploymentRecord is the durable record of one deployment attempt: the plan
// sent, the per-device outcomes observed, and any drift events it triggered.
type DeploymentRecord struct {
	ID             string
	BridgeDomainID string
	SessionID      string
	Plan           map[string][]string
	Stage          DeploymentStage
	CommitCheck    map[string]DeviceDeployResult
	Commit         map[string]DeviceDeployResult
	DriftEvents    []string // DriftEvent IDs observed during this deployment
	RollbackPlan   map[string][]string
	StartedAt      time.Time
	EndedAt        *time.Time
}

// CommittedDevices returns the devices that successfully committed.
func (d DeploymentRecord) CommittedDevices() []string {
	var out []string
	for dev, r := range d.Commit {
		if r.Committed {
			out = append(out, dev)
		}
	}
	return out
}

// FailedDevices returns the devices whose commit phase failed or was
// cancelled.
func (d DeploymentRecord) FailedDevices() []string {
	var out []string
	for dev, r := range d.Commit {
		if !r.Committed {
			out = append(out, dev)
		}
	}
	return out
}
