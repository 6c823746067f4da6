package clientdb

import (
	"github.com/epic-swf/stfmon/internal/common/database"
)

// Migrations for the consumer-side schema. runs embeds the live aggregates;
// tf_metadata's primary key on file_id is the deduplication boundary.
func Migrations() []database.Migration {
	return []database.Migration{
		database.NewMigration(1, "initial_schema", `
CREATE TABLE runs (
	run_number  integer PRIMARY KEY,
	total_tfs   bigint NOT NULL DEFAULT 0,
	total_bytes bigint NOT NULL DEFAULT 0,
	start_time  timestamptz NOT NULL,
	end_time    timestamptz NULL,
	conditions  jsonb NULL
);

CREATE TABLE tf_metadata (
	file_id     uuid PRIMARY KEY,
	run_number  integer NOT NULL REFERENCES runs (run_number),
	tf_number   integer NOT NULL DEFAULT 0,
	file_url    text NOT NULL,
	size_bytes  bigint NOT NULL DEFAULT 0,
	checksum    text NOT NULL DEFAULT '',
	status      text NOT NULL,
	created_at  timestamptz NOT NULL,
	received_at timestamptz NOT NULL
);
CREATE INDEX idx_tf_metadata_run ON tf_metadata (run_number);
`),
	}
}
