package grammars

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/wordloom/internal/core/db"
	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const grammarID = "01890a5d-ac96-774b-bcce-b302099a8057"

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	q, err := db.LoadQueries(sqlx.NewDb(mockDB, "sqlite3"))
	require.NoError(t, err)

	repo := NewRepository(q)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func grammarRows(document string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"grammar_id", "tenant_id", "name", "document", "rule_count", "created_at", "modified_at"}).
		AddRow(grammarID, "tenant-1", "story", document, 2, fixedNow, fixedNow)
}

func TestSave(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc, err := grammar.Parse([]byte("rules: {start: ['%hero%'], hero: [Ada]}"), "")
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO grammars`).
		WithArgs(sqlmock.AnyArg(), "tenant-1", "story", sqlmock.AnyArg(), 2, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT grammar_id, tenant_id, name, document`).
		WithArgs("tenant-1", "story").
		WillReturnRows(grammarRows(`{"rules":{"hero":["Ada"],"start":["%hero%"]}}`))

	g, err := repo.Save(context.Background(), "tenant-1", "story", doc)
	require.NoError(t, err)

	assert.Equal(t, types.GrammarID(grammarID), g.ID)
	assert.Equal(t, types.TenantID("tenant-1"), g.TenantID)
	assert.Equal(t, 2, g.RuleCount)
	assert.Equal(t, []any{"Ada"}, g.Document.Rules["hero"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RejectsInvalidDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	doc, err := grammar.Parse([]byte("weighted: {w: {values: [a], weights: [0.5]}}"), "")
	require.NoError(t, err)

	_, err = repo.Save(context.Background(), "tenant-1", "bad", doc)
	assert.ErrorIs(t, err, types.ErrWeightSum)

	_, err = repo.Save(context.Background(), "tenant-1", "", &grammar.Document{})
	assert.ErrorIs(t, err, types.ErrInvalidGrammar)

	assert.NoError(t, mock.ExpectationsWereMet(), "nothing reaches the database")
}

func TestSave_DatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO grammars`).WillReturnError(errors.New("disk full"))

	_, err := repo.Save(context.Background(), "tenant-1", "story", &grammar.Document{})
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT grammar_id`).WithArgs("tenant-1", "story").
					WillReturnRows(grammarRows(`{"rules":{"start":["hi"]}}`))
			},
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT grammar_id`).WithArgs("tenant-1", "story").
					WillReturnRows(sqlmock.NewRows([]string{"grammar_id"}))
			},
			wantErr: types.ErrGrammarNotFound,
		},
		{
			name: "database down",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT grammar_id`).WillReturnError(errors.New("connection refused"))
			},
			wantErr: types.ErrStorage,
		},
		{
			name: "corrupt document",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT grammar_id`).WithArgs("tenant-1", "story").
					WillReturnRows(grammarRows(`{"macros": {}}`))
			},
			wantErr: types.ErrInvalidGrammar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			g, err := repo.Load(context.Background(), "tenant-1", "story")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				assert.Equal(t, "story", g.Name)
				assert.Equal(t, []any{"hi"}, g.Document.Rules["start"])
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestList(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT grammar_id, tenant_id, name, rule_count`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"grammar_id", "tenant_id", "name", "rule_count", "created_at", "modified_at"}).
			AddRow(grammarID, "tenant-1", "alpha", 3, fixedNow, fixedNow).
			AddRow("01890a5d-ac96-774b-bcce-b302099a8058", "tenant-1", "beta", 1, fixedNow, fixedNow))

	list, err := repo.List(context.Background(), "tenant-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, 1, list[1].RuleCount)

	mock.ExpectQuery(`SELECT grammar_id`).WithArgs("tenant-2").
		WillReturnRows(sqlmock.NewRows([]string{"grammar_id"}))
	list, err = repo.List(context.Background(), "tenant-2")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM grammars`).WithArgs("tenant-1", "story").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "tenant-1", "story"))

	mock.ExpectExec(`DELETE FROM grammars`).WithArgs("tenant-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "tenant-1", "ghost"), types.ErrGrammarNotFound)

	mock.ExpectExec(`DELETE FROM grammars`).WillReturnError(errors.New("locked"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "tenant-1", "story"), types.ErrStorage)

	assert.NoError(t, mock.ExpectationsWereMet())
}
