package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_document_data",
		SQL: `CREATE TABLE IF NOT EXISTS document_data (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  data         TEXT        NOT NULL DEFAULT '',
  initial_data TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  title                      TEXT        NOT NULL,
  status                     TEXT        NOT NULL DEFAULT 'DRAFT',
  document_data_id           UUID        NOT NULL REFERENCES document_data (id),
  user_id                    TEXT        NOT NULL,
  team_id                    TEXT,
  qr_token                   TEXT,
  use_legacy_field_insertion BOOLEAN     NOT NULL DEFAULT FALSE,
  include_certificate        BOOLEAN     NOT NULL DEFAULT FALSE,
  language                   TEXT        NOT NULL DEFAULT 'en',
  created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
  completed_at               TIMESTAMPTZ
);`,
	},
	{
		Name: "create_table_recipients",
		SQL: `CREATE TABLE IF NOT EXISTS recipients (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id      UUID        NOT NULL REFERENCES documents (id),
  email            TEXT        NOT NULL,
  name             TEXT        NOT NULL DEFAULT '',
  role             TEXT        NOT NULL,
  signing_status   TEXT        NOT NULL DEFAULT 'PENDING',
  rejection_reason TEXT,
  signed_at        TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_recipients_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_recipients_document_id ON recipients (document_id);`,
	},
	{
		Name: "create_table_fields",
		SQL: `CREATE TABLE IF NOT EXISTS fields (
  id           UUID             PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id  UUID             NOT NULL REFERENCES documents (id),
  recipient_id UUID             NOT NULL REFERENCES recipients (id),
  type         TEXT             NOT NULL,
  page         INTEGER          NOT NULL CHECK (page >= 1),
  position_x   DOUBLE PRECISION NOT NULL,
  position_y   DOUBLE PRECISION NOT NULL,
  width        DOUBLE PRECISION NOT NULL,
  height       DOUBLE PRECISION NOT NULL,
  inserted     BOOLEAN          NOT NULL DEFAULT FALSE,
  required     BOOLEAN          NOT NULL DEFAULT FALSE,
  custom_text  TEXT
);`,
	},
	{
		Name: "create_index_fields_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_fields_document_id ON fields (document_id);`,
	},
	{
		Name: "create_table_signatures",
		SQL: `CREATE TABLE IF NOT EXISTS signatures (
  id              UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  field_id        UUID        NOT NULL UNIQUE REFERENCES fields (id),
  recipient_id    UUID        NOT NULL REFERENCES recipients (id),
  typed_signature TEXT        NOT NULL DEFAULT '',
  image_png       BYTEA,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_audit_logs",
		SQL: `CREATE TABLE IF NOT EXISTS audit_logs (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id UUID        NOT NULL REFERENCES documents (id),
  type        TEXT        NOT NULL,
  data        JSONB       NOT NULL DEFAULT '{}',
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_logs_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_logs_document_id ON audit_logs (document_id);`,
	},
	{
		Name: "create_table_seal_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS seal_jobs (
  id               UUID        PRIMARY KEY,
  document_id      UUID        NOT NULL REFERENCES documents (id),
  send_email       BOOLEAN     NOT NULL DEFAULT FALSE,
  is_resealing     BOOLEAN     NOT NULL DEFAULT FALSE,
  request_metadata JSONB       NOT NULL DEFAULT '{}',
  status           TEXT        NOT NULL DEFAULT 'PENDING',
  attempts         INTEGER     NOT NULL DEFAULT 0,
  last_error       TEXT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		// One live job per document; DONE and FAILED jobs do not block a
		// new request.
		Name: "create_unique_index_seal_jobs_live",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS idx_seal_jobs_live
  ON seal_jobs (document_id) WHERE status IN ('PENDING', 'RUNNING');`,
	},
	{
		Name: "create_index_seal_jobs_pending",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_seal_jobs_pending ON seal_jobs (created_at) WHERE status = 'PENDING';`,
	},
	{
		Name: "create_table_seal_job_steps",
		SQL: `CREATE TABLE IF NOT EXISTS seal_job_steps (
  job_id     UUID        NOT NULL REFERENCES seal_jobs (id),
  step_name  TEXT        NOT NULL,
  result     JSONB       NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (job_id, step_name)
);`,
	},
}

// EnsureMigrated checks for the sealing schema's sentinel table and runs the
// migration steps when it is missing.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	start := time.Now()

	var exists bool
	const sentinel = "SELECT to_regclass('public.documents') IS NOT NULL"
	if err := db.QueryRowContext(ctx, sentinel).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration step applied",
			zap.String("step", step.Name),
			zap.Duration("took", time.Since(stepStart)))
	}

	log.Info("migration complete", zap.Duration("took", time.Since(start)))
	return nil
}
