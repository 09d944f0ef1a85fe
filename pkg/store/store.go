// Package store persists bridge domains, their member interfaces,
// assignments, and deployment/drift history in a local sqlite database.
// The database is the sole mutable shared resource in the system: the
// multi-statement bridge-domain upsert runs in an explicit transaction
// (every other write is a single statement), and long-running
// discovery upserts commit one bridge domain at a time so that a failure
// partway through a fleet scan never loses already-persisted records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go sqlite driver, no cgo

	"github.com/dnaas-network/bridge/pkg/bderrors"
	"github.com/dnaas-network/bridge/pkg/model"
	"github.com/dnaas-network/bridge/pkg/util"
)

// Store wraps a sqlite-backed relational store for the bridge-domain
// fleet state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path, applies
// pragmas appropriate for a single-writer embedded database, and runs the
// schema migration. Database unavailability is fatal to the process, per
// the error-handling contract, so callers should treat a non-nil error
// here as unrecoverable at startup.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids lock-contention
	// errors surfacing as spurious "database is locked" failures.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func newID() string {
	return uuid.NewString()
}

func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE CONSTRAINT")
}

// UpsertBridgeDomain writes a canonical bridge domain and its member
// interfaces in a single transaction, keyed by its unique Name. A fresh
// record is assigned an ID and CreatedAt; an existing record (matched by
// name) keeps its ID and CreatedAt and has everything else replaced,
// including its full interface membership list.
func (s *Store) UpsertBridgeDomain(ctx context.Context, bd *model.BridgeDomain) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := nowRFC3339()

	var existingID, createdAt string
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM bridge_domains WHERE name = ?`, bd.Name).Scan(&existingID, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		if bd.ID == "" {
			bd.ID = newID()
		}
		createdAt = now
	case err != nil:
		return fmt.Errorf("looking up existing bridge domain: %w", err)
	default:
		bd.ID = existingID
	}

	configData, err := marshalJSON(bd.ConsolidationInfo)
	if err != nil {
		return fmt.Errorf("marshaling configuration data: %w", err)
	}
	discoveryData, err := marshalJSON(bd.DiscoveryMetadata)
	if err != nil {
		return fmt.Errorf("marshaling discovery data: %w", err)
	}

	var deployedAt interface{}
	if bd.DeployedAt != nil {
		deployedAt = bd.DeployedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bridge_domains (
			id, name, source, username, vlan_id, outer_vlan, inner_vlan,
			topology_type, dnaas_type, scope, configuration_data, raw_cli_config,
			discovery_data, deployment_status, deployed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			username=excluded.username, vlan_id=excluded.vlan_id,
			outer_vlan=excluded.outer_vlan, inner_vlan=excluded.inner_vlan,
			topology_type=excluded.topology_type, dnaas_type=excluded.dnaas_type,
			scope=excluded.scope, configuration_data=excluded.configuration_data,
			raw_cli_config=excluded.raw_cli_config, discovery_data=excluded.discovery_data,
			deployment_status=excluded.deployment_status, deployed_at=excluded.deployed_at,
			updated_at=excluded.updated_at`,
		bd.ID, bd.Name, "discovered", bd.Username, bd.VLANID, bd.OuterVLAN, bd.InnerVLAN,
		string(bd.TopologyType), string(bd.DNAASType), string(bd.Scope), configData,
		strings.Join(bd.RawCLIConfig, "\n"), discoveryData, bd.DeploymentStatus, deployedAt,
		createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upserting bridge domain: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_domain_interfaces WHERE bridge_domain_id = ?`, bd.ID); err != nil {
		return fmt.Errorf("clearing existing interface membership: %w", err)
	}

	for _, m := range bd.Members {
		var vlan interface{}
		if m.VLANID != nil {
			vlan = *m.VLANID
		}
		l2 := 0
		if m.L2ServiceEnabled {
			l2 = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bridge_domain_interfaces (
				id, bridge_domain_id, device_name, interface_name, interface_type,
				vlan_id, admin_status, oper_status, l2_service_enabled, discovered_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			newID(), bd.ID, m.Device, m.Name, string(m.Kind), vlan,
			string(m.AdminStatus), string(m.OperStatus), l2, now,
		)
		if err != nil {
			return fmt.Errorf("inserting member interface %s/%s: %w", m.Device, m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing bridge domain upsert: %w", err)
	}
	return nil
}

// GetBridgeDomain loads a single bridge domain by ID, including its member
// interfaces.
func (s *Store) GetBridgeDomain(ctx context.Context, id string) (*model.BridgeDomain, error) {
	row := s.db.QueryRowContext(ctx, bdSelectColumns+` FROM bridge_domains WHERE id = ?`, id)
	bd, err := scanBridgeDomain(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadMembers(ctx, bd); err != nil {
		return nil, err
	}
	return bd, nil
}

// GetBridgeDomainByName loads a single bridge domain by its unique name.
func (s *Store) GetBridgeDomainByName(ctx context.Context, name string) (*model.BridgeDomain, error) {
	row := s.db.QueryRowContext(ctx, bdSelectColumns+` FROM bridge_domains WHERE name = ?`, name)
	bd, err := scanBridgeDomain(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadMembers(ctx, bd); err != nil {
		return nil, err
	}
	return bd, nil
}

// ListAvailable returns every bridge domain with no active (pending or
// deployed) assignment.
func (s *Store) ListAvailable(ctx context.Context) ([]*model.BridgeDomain, error) {
	rows, err := s.db.QueryContext(ctx, bdSelectColumns+` FROM bridge_domains bd
		WHERE NOT EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.bridge_domain_id = bd.id AND a.status IN ('pending', 'deployed')
		)`)
	if err != nil {
		return nil, fmt.Errorf("listing available bridge domains: %w", err)
	}
	return s.scanBridgeDomainRows(ctx, rows)
}

// ListAssignedTo returns every bridge domain with an active assignment
// held by userID.
func (s *Store) ListAssignedTo(ctx context.Context, userID string) ([]*model.BridgeDomain, error) {
	rows, err := s.db.QueryContext(ctx, bdSelectColumns+` FROM bridge_domains bd
		WHERE EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.bridge_domain_id = bd.id AND a.user_id = ? AND a.status IN ('pending', 'deployed')
		)`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing bridge domains assigned to %s: %w", userID, err)
	}
	return s.scanBridgeDomainRows(ctx, rows)
}

// ListAll returns every bridge domain in the store, regardless of
// assignment status, ordered by name.
func (s *Store) ListAll(ctx context.Context) ([]*model.BridgeDomain, error) {
	rows, err := s.db.QueryContext(ctx, bdSelectColumns+` FROM bridge_domains bd ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing bridge domains: %w", err)
	}
	return s.scanBridgeDomainRows(ctx, rows)
}

func (s *Store) scanBridgeDomainRows(ctx context.Context, rows *sql.Rows) ([]*model.BridgeDomain, error) {
	defer rows.Close()
	var out []*model.BridgeDomain
	for rows.Next() {
		bd, err := scanBridgeDomain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, bd := range out {
		if err := s.loadMembers(ctx, bd); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadMembers(ctx context.Context, bd *model.BridgeDomain) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT device_name, interface_name, interface_type, vlan_id, admin_status, oper_status, l2_service_enabled
		FROM bridge_domain_interfaces WHERE bridge_domain_id = ?`, bd.ID)
	if err != nil {
		return fmt.Errorf("loading member interfaces: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Interface
		var vlan sql.NullInt64
		var l2 int
		if err := rows.Scan(&m.Device, &m.Name, &m.Kind, &vlan, &m.AdminStatus, &m.OperStatus, &l2); err != nil {
			return fmt.Errorf("scanning member interface: %w", err)
		}
		if vlan.Valid {
			v := int(vlan.Int64)
			m.VLANID = &v
		}
		m.L2ServiceEnabled = l2 != 0
		bd.Members = append(bd.Members, m)
	}
	return rows.Err()
}

const bdSelectColumns = `SELECT id, name, username, vlan_id, outer_vlan, inner_vlan,
	topology_type, dnaas_type, scope, deployment_status, deployed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBridgeDomain(row scanner) (*model.BridgeDomain, error) {
	var bd model.BridgeDomain
	var outerVLAN, innerVLAN sql.NullInt64
	var deployedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&bd.ID, &bd.Name, &bd.Username, &bd.VLANID, &outerVLAN, &innerVLAN,
		&bd.TopologyType, &bd.DNAASType, &bd.Scope, &bd.DeploymentStatus, &deployedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning bridge domain row: %w", err)
	}

	if outerVLAN.Valid {
		v := int(outerVLAN.Int64)
		bd.OuterVLAN = &v
	}
	if innerVLAN.Valid {
		v := int(innerVLAN.Int64)
		bd.InnerVLAN = &v
	}
	if deployedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, deployedAt.String)
		if err == nil {
			bd.DeployedAt = &t
		}
	}
	bd.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	bd.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &bd, nil
}

// AcquireAssignment records a new pending assignment for bdID, enforced by
// the partial-unique index so a bridge domain can never carry two
// simultaneous active assignments. A second holder racing for the same BD
// gets bderrors.ErrAlreadyAssigned.
func (s *Store) AcquireAssignment(ctx context.Context, bdID, userID, reason string) (*model.Assignment, error) {
	a := &model.Assignment{
		ID:             newID(),
		BridgeDomainID: bdID,
		UserID:         userID,
		Reason:         reason,
		Status:         model.AssignmentPending,
		AssignedAt:     time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (id, bridge_domain_id, user_id, reason, status, assigned_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.BridgeDomainID, a.UserID, a.Reason, string(a.Status), a.AssignedAt.Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return nil, bderrors.NewDeviceError("", "assign", bderrors.KindPersistence,
			fmt.Sprintf("bridge domain %s already has an active assignment", bdID), bderrors.ErrAlreadyAssigned)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring assignment: %w", err)
	}
	return a, nil
}

// ReleaseAssignment marks an assignment released, freeing the bridge
// domain for a new holder.
func (s *Store) ReleaseAssignment(ctx context.Context, assignmentID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `
		UPDATE assignments SET status = ?, released_at = ? WHERE id = ? AND status IN ('pending', 'deployed')`,
		string(model.AssignmentReleased), now, assignmentID)
	if err != nil {
		return fmt.Errorf("releasing assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking release result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assignment %s not found or already released", assignmentID)
	}
	return nil
}

// AppendDeployment inserts a new deployment record.
func (s *Store) AppendDeployment(ctx context.Context, dep *model.DeploymentRecord) error {
	if dep.ID == "" {
		dep.ID = newID()
	}
	if dep.StartedAt.IsZero() {
		dep.StartedAt = time.Now().UTC()
	}
	plan, err := marshalJSON(dep.Plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	perDevice, err := marshalJSON(dep.CommitCheck)
	if err != nil {
		return fmt.Errorf("marshaling per-device results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deployments (id, bridge_domain_id, session_id, stage, plan, per_device_results, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		dep.ID, dep.BridgeDomainID, dep.SessionID, string(dep.Stage), plan, perDevice,
		dep.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("appending deployment: %w", err)
	}
	return nil
}

// UpdateDeploymentStage updates a deployment's stage and per-device commit
// results, setting ended_at once the stage reaches a terminal state.
func (s *Store) UpdateDeploymentStage(ctx context.Context, id string, stage model.DeploymentStage, perDeviceResults map[string]model.DeviceDeployResult) error {
	results, err := marshalJSON(perDeviceResults)
	if err != nil {
		return fmt.Errorf("marshaling per-device results: %w", err)
	}

	var endedAt interface{}
	if isTerminalStage(stage) {
		endedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE deployments SET stage = ?, per_device_results = ?, ended_at = COALESCE(?, ended_at) WHERE id = ?`,
		string(stage), results, endedAt, id)
	if err != nil {
		return fmt.Errorf("updating deployment stage: %w", err)
	}
	return nil
}

func isTerminalStage(stage model.DeploymentStage) bool {
	switch stage {
	case model.StageCommitted, model.StageFailed, model.StageAborted:
		return true
	default:
		return false
	}
}

// AppendDriftEvent inserts a new drift event record.
func (s *Store) AppendDriftEvent(ctx context.Context, ev *model.DriftEvent) error {
	if ev.ID == "" {
		ev.ID = newID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	var deploymentID interface{}
	if ev.DeploymentID != "" {
		deploymentID = ev.DeploymentID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drift_events (id, deployment_id, kind, device_name, interface_name, detection_source, severity, expected, observed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, deploymentID, string(ev.Kind), ev.Device, nullableString(ev.Interface),
		string(ev.DetectionSource), string(ev.Severity), ev.Expected, ev.Observed,
		ev.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("appending drift event: %w", err)
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ValidateVLANAssignment is a thin convenience wrapper used by higher
// layers that need to confirm a VLAN is well-formed before persisting a
// bridge domain derived from operator input (as opposed to discovery,
// which always observes already-valid device state).
func ValidateVLANAssignment(vlan int) error {
	return util.ValidateVLANID(vlan)
}
