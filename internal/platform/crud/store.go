package crud

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sosecurity/api/internal/platform/db"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("record not found")

// Record is one row keyed by JSON field name. The primary key is "id".
type Record map[string]any

// Store persists records for one Descriptor.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, fields map[string]any) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	UpdateByOwner(ctx context.Context, ownerID int64, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// PGStore runs generated SQL on the request-scoped connection.
type PGStore struct {
	desc *Descriptor
}

// StoreFactory builds the Store for a descriptor.
type StoreFactory func(desc *Descriptor) Store

// PGStores is the StoreFactory used in production.
func PGStores(desc *Descriptor) Store {
	return NewPGStore(desc)
}

func NewPGStore(desc *Descriptor) *PGStore {
	return &PGStore{desc: desc}
}

func (s *PGStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, s.desc.selectAllSQL())
}

func (s *PGStore) ListByOwner(ctx context.Context, ownerID int64) ([]Record, error) {
	return s.query(ctx, s.desc.selectByOwnerSQL(), ownerID)
}

func (s *PGStore) Get(ctx context.Context, id int64) (Record, error) {
	recs, err := s.query(ctx, s.desc.selectByIDSQL(), id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (s *PGStore) Create(ctx context.Context, fields map[string]any) (int64, error) {
	q, err := db.QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}
	set, err := s.desc.assignments(fields, true)
	if err != nil {
		return 0, err
	}

	sql, args := insertSQL(s.desc, set)
	var id int64
	if err := q.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", s.desc.Table, err)
	}
	return id, nil
}

func (s *PGStore) Update(ctx context.Context, id int64, fields map[string]any) error {
	n, err := s.update(ctx, s.desc.Key, id, fields)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) UpdateByOwner(ctx context.Context, ownerID int64, fields map[string]any) (int64, error) {
	n, err := s.update(ctx, s.desc.Owner, ownerID, fields)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (s *PGStore) update(ctx context.Context, where string, id int64, fields map[string]any) (int64, error) {
	q, err := db.QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}
	set, err := s.desc.assignments(fields, false)
	if err != nil {
		return 0, err
	}

	sql, args := updateSQL(s.desc, set, where, id)
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", s.desc.Table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Delete(ctx context.Context, id int64) error {
	q, err := db.QuerierFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, s.desc.deleteSQL(), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.desc.Table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) query(ctx context.Context, sql string, args ...any) ([]Record, error) {
	q, err := db.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.desc.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.desc.Table, err)
	}

	recs := make([]Record, 0, len(maps))
	for _, m := range maps {
		recs = append(recs, s.desc.record(m))
	}
	return recs, nil
}

// record renames columns to JSON field names.
func (d *Descriptor) record(row map[string]any) Record {
	rec := Record{"id": row[d.Key]}
	for _, f := range d.readable() {
		rec[f.Name] = f.present(row[f.column()])
	}
	return rec
}
