package model

import "time"

// DriftKind is the closed set of divergences the drift resolver can classify.
type DriftKind string

const (
	DriftInterfaceAlreadyConfigured DriftKind = "interface_already_configured"
	DriftBridgeDomainAlreadyExists  DriftKind = "bridge_domain_already_exists"
	DriftVLANConflict              DriftKind = "vlan_conflict"
	DriftConfigurationMismatch     DriftKind = "configuration_mismatch"
)

// DetectionSource records where a drift event was observed.
type DetectionSource string

const (
	DetectionCommitCheck      DetectionSource = "commit_check"
	DetectionDeploymentFailure DetectionSource = "deployment_failure"
	DetectionValidation       DetectionSource = "validation"
)

// Severity is a coarse impact rating attached to a drift event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DriftEvent records one observed divergence between the database's view of
// a bridge domain and the device's actual running configuration.
type DriftEvent struct {
	ID              string
	DeploymentID    string // empty when not tied to an in-progress deployment
	Kind            DriftKind
	Device          string
	Interface       string
	DetectionSource DetectionSource
	Severity        Severity
	Expected        string
	Observed        string
	CreatedAt       time.Time
}

// Resolution is the action a holder chooses in response to a DriftEvent.
type Resolution string

const (
	ResolveSync     Resolution = "sync"
	ResolveSkip     Resolution = "skip"
	ResolveOverride Resolution = "override"
	ResolveAbort    Resolution = "abort"
)
