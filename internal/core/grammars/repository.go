// Package grammars persists grammar documents per tenant.
//
// A stored grammar is the JSON encoding of a grammar.Document keyed by
// (tenant, name). Save is an upsert: the first save assigns a UUIDv7 id and
// creation time, later saves replace the document and bump modified_at.
// Documents are compiled before they are written, so the store never holds a
// grammar that cannot be applied to an engine.
package grammars

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/wordloom/internal/grammar"
	"github.com/solatis/wordloom/internal/types"
)

// Queries is the subset of *db.Queries the repository needs.
type Queries interface {
	ExecContext(ctx context.Context, name string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, name string, dest any, args ...any) error
	SelectContext(ctx context.Context, name string, dest any, args ...any) error
}

// Summary describes a stored grammar without its document.
type Summary struct {
	ID         types.GrammarID `db:"grammar_id"`
	TenantID   types.TenantID  `db:"tenant_id"`
	Name       string          `db:"name"`
	RuleCount  int             `db:"rule_count"`
	CreatedAt  time.Time       `db:"created_at"`
	ModifiedAt time.Time       `db:"modified_at"`
}

// Grammar is a stored grammar with its decoded document.
type Grammar struct {
	Summary
	Document *grammar.Document
}

type row struct {
	Summary
	Document string `db:"document"`
}

// Repository reads and writes grammars through named queries.
type Repository struct {
	queries Queries
	now     func() time.Time
}

// NewRepository creates a repository over loaded queries.
func NewRepository(queries Queries) *Repository {
	return &Repository{
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save validates doc and stores it under (tenant, name), replacing any
// previous version. Returns the stored grammar.
func (r *Repository) Save(ctx context.Context, tenant types.TenantID, name string, doc *grammar.Document) (*Grammar, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: grammar name is empty", types.ErrInvalidGrammar)
	}
	if _, _, err := doc.Compile(); err != nil {
		return nil, fmt.Errorf("grammar %q: %w", name, err)
	}
	encoded, err := doc.Marshal(grammar.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("encode grammar %q: %w", name, err)
	}

	now := r.now()
	_, err = r.queries.ExecContext(ctx, "upsert-grammar",
		string(types.NewGrammarID()), string(tenant), name, string(encoded), doc.RuleCount(), now, now)
	if err != nil {
		return nil, fmt.Errorf("%w: save grammar %q: %w", types.ErrStorage, name, err)
	}

	return r.Load(ctx, tenant, name)
}

// Load returns the named grammar or ErrGrammarNotFound.
func (r *Repository) Load(ctx context.Context, tenant types.TenantID, name string) (*Grammar, error) {
	var stored row
	err := r.queries.GetContext(ctx, "get-grammar-by-name", &stored, string(tenant), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", types.ErrGrammarNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load grammar %q: %w", types.ErrStorage, name, err)
	}

	doc, err := grammar.Parse([]byte(stored.Document), "")
	if err != nil {
		return nil, fmt.Errorf("stored grammar %q: %w", name, err)
	}
	return &Grammar{Summary: stored.Summary, Document: doc}, nil
}

// List returns the tenant's grammars ordered by name.
func (r *Repository) List(ctx context.Context, tenant types.TenantID) ([]Summary, error) {
	summaries := []Summary{}
	if err := r.queries.SelectContext(ctx, "list-grammars", &summaries, string(tenant)); err != nil {
		return nil, fmt.Errorf("%w: list grammars: %w", types.ErrStorage, err)
	}
	return summaries, nil
}

// Delete removes the named grammar or returns ErrGrammarNotFound.
func (r *Repository) Delete(ctx context.Context, tenant types.TenantID, name string) error {
	res, err := r.queries.ExecContext(ctx, "delete-grammar", string(tenant), name)
	if err != nil {
		return fmt.Errorf("%w: delete grammar %q: %w", types.ErrStorage, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete grammar %q: %w", types.ErrStorage, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", types.ErrGrammarNotFound, name)
	}
	return nil
}
