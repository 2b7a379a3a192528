package database

import (
	"database/sql"
	"fmt"
)

// schema is the full DDL for the service. Statements are idempotent so the
// bootstrap can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	phone       TEXT NOT NULL UNIQUE,
	email       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS groups (
	id                     BIGSERIAL PRIMARY KEY,
	name                   TEXT NOT NULL,
	kind                   TEXT NOT NULL,
	contribution_amount    BIGINT NOT NULL DEFAULT 0,
	currency               TEXT NOT NULL DEFAULT 'KES',
	collection_frequency   TEXT NOT NULL DEFAULT 'monthly',
	collection_day         INT NOT NULL DEFAULT 1,
	rotation_policy        TEXT NOT NULL DEFAULT 'sequential',
	total_cycles           INT,
	current_cycle          INT NOT NULL DEFAULT 1,
	current_rotation_index INT NOT NULL DEFAULT 0,
	status                 TEXT NOT NULL DEFAULT 'active',
	total_collected        BIGINT NOT NULL DEFAULT 0,
	total_distributed      BIGINT NOT NULL DEFAULT 0,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS members (
	id                  BIGSERIAL PRIMARY KEY,
	group_id            BIGINT NOT NULL REFERENCES groups(id),
	account_id          BIGINT REFERENCES accounts(id),
	name                TEXT NOT NULL,
	phone               TEXT NOT NULL,
	role                TEXT NOT NULL DEFAULT 'member',
	rotation_position   INT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'active',
	total_contributed   BIGINT NOT NULL DEFAULT 0,
	total_received      BIGINT NOT NULL DEFAULT 0,
	has_received_payout BOOLEAN NOT NULL DEFAULT FALSE,
	pledge_amount       BIGINT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (group_id, phone),
	UNIQUE (group_id, rotation_position)
);

CREATE TABLE IF NOT EXISTS cycles (
	id                  BIGSERIAL PRIMARY KEY,
	group_id            BIGINT NOT NULL REFERENCES groups(id),
	cycle_number        INT NOT NULL,
	expected_amount     BIGINT NOT NULL DEFAULT 0,
	collected_amount    BIGINT NOT NULL DEFAULT 0,
	recipient_member_id BIGINT REFERENCES members(id),
	status              TEXT NOT NULL DEFAULT 'collecting',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	settled_at          TIMESTAMPTZ,
	UNIQUE (group_id, cycle_number)
);

CREATE TABLE IF NOT EXISTS debit_requests (
	id            BIGSERIAL PRIMARY KEY,
	cycle_id      BIGINT NOT NULL REFERENCES cycles(id),
	member_id     BIGINT NOT NULL REFERENCES members(id),
	phone         TEXT NOT NULL,
	amount        BIGINT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	tracking_ref  TEXT,
	attempt_count INT NOT NULL DEFAULT 1,
	max_attempts  INT NOT NULL DEFAULT 3,
	receipt_id    TEXT,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_members_group ON members(group_id);
CREATE INDEX IF NOT EXISTS idx_cycles_group_status ON cycles(group_id, status);
-- At most one collecting cycle per group, enforced at the storage layer so
-- concurrent StartCollection calls cannot both slip past the precondition.
CREATE UNIQUE INDEX IF NOT EXISTS uniq_collecting_cycle ON cycles(group_id) WHERE status = 'collecting';
CREATE INDEX IF NOT EXISTS idx_requests_cycle ON debit_requests(cycle_id);

CREATE TABLE IF NOT EXISTS notifications (
	id                  BIGSERIAL PRIMARY KEY,
	recipient_id        BIGINT NOT NULL REFERENCES accounts(id),
	message             TEXT NOT NULL,
	is_read             BOOLEAN NOT NULL DEFAULT FALSE,
	related_entity_type TEXT,
	related_entity_id   BIGINT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id);
`

// Migrate creates the schema if it does not exist yet.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
