package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docseal/internal/model"
	"docseal/internal/repository"
)

func bundleRows(t *testing.T) (*sqlmock.Rows, *sqlmock.Rows, *sqlmock.Rows) {
	t.Helper()
	now := time.Now().UTC()
	docRows := sqlmock.NewRows([]string{
		"id", "title", "status", "document_data_id", "user_id", "team_id",
		"qr_token", "use_legacy_field_insertion", "include_certificate",
		"language", "created_at", "completed_at",
		"dd_id", "dd_data", "dd_initial_data",
	}).AddRow(
		"doc-1", "NDA", "PENDING", "data-1", "user-1", "",
		"", false, true, "en", now, nil,
		"data-1", "document-data/current.pdf", "document-data/initial.pdf",
	)
	recipientRows := sqlmock.NewRows([]string{
		"id", "document_id", "email", "name", "role", "signing_status",
		"rejection_reason", "signed_at",
	}).
		AddRow("rec-1", "doc-1", "a@example.com", "Alice", "SIGNER", "SIGNED", "", now).
		AddRow("rec-2", "doc-1", "b@example.com", "Bob", "CC", "PENDING", "", nil)
	fieldRows := sqlmock.NewRows([]string{
		"id", "document_id", "recipient_id", "type", "page",
		"position_x", "position_y", "width", "height",
		"inserted", "required", "custom_text",
		"sig_id", "sig_recipient_id", "typed_signature", "image_png",
	}).
		AddRow("fld-1", "doc-1", "rec-1", "SIGNATURE", 1,
			10.0, 20.0, 25.0, 5.0, true, true, "",
			"sig-1", "rec-1", "Alice", nil).
		AddRow("fld-2", "doc-1", "rec-1", "TEXT", 1,
			10.0, 40.0, 25.0, 5.0, true, false, "Approved",
			nil, nil, nil, nil)
	return docRows, recipientRows, fieldRows
}

func TestDocumentPostgres_FindBundle(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		docRows, recipientRows, fieldRows := bundleRows(t)
		mock.ExpectQuery("SELECT (.+) FROM documents d").
			WithArgs("doc-1").
			WillReturnRows(docRows)
		mock.ExpectQuery("SELECT (.+) FROM recipients").
			WithArgs("doc-1").
			WillReturnRows(recipientRows)
		mock.ExpectQuery("SELECT (.+) FROM fields f").
			WithArgs("doc-1").
			WillReturnRows(fieldRows)

		b, err := repo.FindBundle(ctx, "doc-1")

		assert.NoError(t, err)
		assert.Equal(t, "doc-1", b.Document.ID)
		assert.Equal(t, "document-data/initial.pdf", b.Data.InitialData)
		assert.Len(t, b.Recipients, 2)
		assert.Len(t, b.Fields, 2)
		assert.NotNil(t, b.Fields[0].Signature)
		assert.Equal(t, "Alice", b.Fields[0].Signature.TypedSignature)
		assert.Nil(t, b.Fields[1].Signature)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents d").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		b, err := repo.FindBundle(ctx, "missing")

		assert.Nil(t, b)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentPostgres_AssignQRToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectExec("UPDATE documents SET qr_token").
		WithArgs("doc-1", "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.AssignQRToken(context.Background(), "doc-1", "tok-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_CompleteSeal(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	now := time.Now().UTC()
	params := repository.CompleteSealParams{
		DocumentID:     "doc-1",
		DocumentDataID: "data-1",
		DataRef:        "document-data/sealed.pdf",
		Status:         model.DocumentStatusCompleted,
		CompletedAt:    now,
		AuditLog: model.AuditLog{
			ID:         "audit-1",
			DocumentID: "doc-1",
			Type:       model.AuditLogTypeDocumentCompleted,
			Data:       map[string]any{"transactionId": "tx-1"},
			CreatedAt:  now,
		},
	}

	t.Run("commits all writes", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs("doc-1", model.DocumentStatusCompleted, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE document_data SET data").
			WithArgs("data-1", "document-data/sealed.pdf").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").
			WithArgs("audit-1", "doc-1", model.AuditLogTypeDocumentCompleted, sqlmock.AnyArg(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.CompleteSeal(context.Background(), params))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when audit insert fails", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs("doc-1", model.DocumentStatusCompleted, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE document_data SET data").
			WithArgs("data-1", "document-data/sealed.pdf").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO audit_logs").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		assert.Error(t, repo.CompleteSeal(context.Background(), params))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
