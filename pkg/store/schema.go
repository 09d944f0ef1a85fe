package store

const schema = `
CREATE TABLE IF NOT EXISTS bridge_domains (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL UNIQUE,
	source              TEXT NOT NULL DEFAULT 'discovered',
	username            TEXT NOT NULL,
	vlan_id             INTEGER NOT NULL,
	outer_vlan          INTEGER,
	inner_vlan          INTEGER,
	topology_type       TEXT NOT NULL DEFAULT 'unknown',
	dnaas_type          TEXT NOT NULL DEFAULT 'UNKNOWN',
	scope               TEXT NOT NULL DEFAULT 'unknown',
	configuration_data  TEXT NOT NULL DEFAULT '{}',
	raw_cli_config      TEXT NOT NULL DEFAULT '',
	discovery_data      TEXT NOT NULL DEFAULT '{}',
	deployment_status   TEXT NOT NULL DEFAULT '',
	deployed_at         TEXT,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bridge_domain_interfaces (
	id                  TEXT PRIMARY KEY,
	bridge_domain_id    TEXT NOT NULL REFERENCES bridge_domains(id) ON DELETE CASCADE,
	device_name         TEXT NOT NULL,
	interface_name      TEXT NOT NULL,
	interface_type      TEXT NOT NULL,
	vlan_id             INTEGER,
	admin_status        TEXT NOT NULL DEFAULT 'unknown',
	oper_status         TEXT NOT NULL DEFAULT 'unknown',
	l2_service_enabled  INTEGER NOT NULL DEFAULT 0,
	discovered_at       TEXT NOT NULL,
	UNIQUE(bridge_domain_id, device_name, interface_name)
);

CREATE TABLE IF NOT EXISTS assignments (
	id                  TEXT PRIMARY KEY,
	bridge_domain_id    TEXT NOT NULL REFERENCES bridge_domains(id) ON DELETE CASCADE,
	user_id             TEXT NOT NULL,
	reason              TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	assigned_at         TEXT NOT NULL,
	released_at         TEXT
);

-- Partial-unique index: only one ACTIVE (pending or deployed) assignment per BD.
CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active_per_bd
	ON assignments(bridge_domain_id)
	WHERE status IN ('pending', 'deployed');

CREATE TABLE IF NOT EXISTS deployments (
	id                  TEXT PRIMARY KEY,
	bridge_domain_id    TEXT NOT NULL REFERENCES bridge_domains(id) ON DELETE CASCADE,
	session_id          TEXT NOT NULL DEFAULT '',
	stage               TEXT NOT NULL,
	plan                TEXT NOT NULL DEFAULT '{}',
	per_device_results  TEXT NOT NULL DEFAULT '{}',
	started_at          TEXT NOT NULL,
	ended_at            TEXT
);

CREATE TABLE IF NOT EXISTS drift_events (
	id                  TEXT PRIMARY KEY,
	deployment_id       TEXT REFERENCES deployments(id) ON DELETE SET NULL,
	kind                TEXT NOT NULL,
	device_name         TEXT NOT NULL,
	interface_name      TEXT,
	detection_source    TEXT NOT NULL,
	severity            TEXT NOT NULL,
	expected            TEXT NOT NULL DEFAULT '',
	observed            TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bd_interfaces_bd ON bridge_domain_interfaces(bridge_domain_id);
CREATE INDEX IF NOT EXISTS idx_assignments_bd ON assignments(bridge_domain_id);
CREATE INDEX IF NOT EXISTS idx_deployments_bd ON deployments(bridge_domain_id);
CREATE INDEX IF NOT EXISTS idx_drift_events_deployment ON drift_events(deployment_id);
`
