package ledger

import (
	"github.com/epic-swf/stfmon/internal/common/database"
)

// Migrations for the producer-side schema. The file_url unique constraint
// is the ledger's idempotency boundary; dispatch_records is append-only.
func Migrations() []database.Migration {
	return []database.Migration{
		database.NewMigration(1, "initial_schema", `
CREATE TABLE runs (
	run_id      serial PRIMARY KEY,
	run_number  integer NOT NULL UNIQUE,
	start_time  timestamptz NOT NULL,
	end_time    timestamptz NULL,
	conditions  jsonb NULL
);

CREATE TABLE stf_files (
	file_id        uuid PRIMARY KEY,
	run_number     integer NOT NULL REFERENCES runs (run_number),
	stf_identifier integer NOT NULL DEFAULT 0,
	file_url       text NOT NULL UNIQUE,
	size_bytes     bigint NOT NULL DEFAULT 0,
	checksum       text NOT NULL DEFAULT '',
	creation_time  timestamptz NOT NULL,
	status         text NOT NULL DEFAULT 'registered',
	status_time    timestamptz NOT NULL DEFAULT now(),
	metadata       jsonb NULL
);
CREATE INDEX idx_stf_files_run_status ON stf_files (run_number, status);

CREATE TABLE dispatch_records (
	dispatch_id   uuid PRIMARY KEY,
	file_id       uuid NOT NULL REFERENCES stf_files (file_id),
	dispatch_time timestamptz NOT NULL,
	payload       jsonb NULL,
	success       boolean NOT NULL,
	error_message text NULL
);
CREATE INDEX idx_dispatch_records_file_id ON dispatch_records (file_id);

CREATE TABLE subscribers (
	subscriber_id   serial PRIMARY KEY,
	subscriber_name text NOT NULL UNIQUE,
	fraction        double precision NULL,
	description     text NULL,
	is_active       boolean NOT NULL DEFAULT true
);
`),
	}
}
