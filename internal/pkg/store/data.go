package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/paulexconde/dfsurvey/pkg/fault"
)

type dataStore[T any] struct {
	db        *sqlx.DB
	tablename string
	hooks     Hooks
	mu        sync.RWMutex
}

func NewDataStore[T any](db *sqlx.DB, tablename string) *dataStore[T] {
	return &dataStore[T]{
		db:        db,
		tablename: tablename,
		mu:        sync.RWMutex{},
	}
}

func (s *dataStore[T]) Base() *sqlx.DB {
	return s.db
}

func (s *dataStore[T]) SetHooks(hooks Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks.PreSave = append(s.hooks.PreSave, hooks.PreSave...)
	s.hooks.PostSave = append(s.hooks.PostSave, hooks.PostSave...)
	s.hooks.PreDelete = append(s.hooks.PreDelete, hooks.PreDelete...)
	s.hooks.PostDelete = append(s.hooks.PostDelete, hooks.PostDelete...)
	s.hooks.AfterSaveCommit = append(s.hooks.AfterSaveCommit, hooks.AfterSaveCommit...)
}

func (s *dataStore[T]) snapshot() Hooks {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks
}

func (s *dataStore[T]) QueryRow(ctx context.Context, query string, args ...any) (any, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(query), args...)

	var result any

	err := row.Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.ErrNotFound
		}
		return nil, err
	}

	return result, nil
}

func (s *dataStore[T]) Get(ctx context.Context, query string, args ...any) (*T, error) {
	var result T

	if err := s.db.GetContext(ctx, &result, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fault.ErrNotFound
		}
		return nil, err
	}

	return &result, nil
}

func (s *dataStore[T]) Select(ctx context.Context, query string, args ...any) ([]T, error) {
	results := []T{}

	if err := s.db.SelectContext(ctx, &results, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []T{}, nil
		}
		return nil, err
	}

	return results, nil
}

func (s *dataStore[T]) Create(ctx context.Context, data DTO) (model *T, err error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hooks := s.snapshot()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, hook := range hooks.PreSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, true); err != nil {
			return nil, err
		}
	}

	columns, placeholders := getStructFieldsFromDTO(data)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.tablename, columns, placeholders)

	if _, err = tx.NamedExecContext(ctx, query, data); err != nil {
		err = translateError(err)
		return nil, err
	}

	model, err = s.getByID(ctx, tx, data.PrimaryKey())
	if err != nil {
		return nil, err
	}

	for _, hook := range hooks.PostSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, model, true); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, hooks, data, model, true)

	return model, nil
}

// CreateMany inserts every row in one transaction. Either all rows are
// stored or none are.
func (s *dataStore[T]) CreateMany(ctx context.Context, rows []DTO) (models []T, err error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hooks := s.snapshot()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	models = make([]T, 0, len(rows))
	created := make([]*T, 0, len(rows))
	for _, data := range rows {
		for _, hook := range hooks.PreSave {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			if err = hook(ctx, tx, data, true); err != nil {
				return nil, err
			}
		}

		columns, placeholders := getStructFieldsFromDTO(data)
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.tablename, columns, placeholders)
		if _, err = tx.NamedExecContext(ctx, query, data); err != nil {
			err = translateError(err)
			return nil, err
		}

		var model *T
		if model, err = s.getByID(ctx, tx, data.PrimaryKey()); err != nil {
			return nil, err
		}

		for _, hook := range hooks.PostSave {
			if err = hook(ctx, tx, data, model, true); err != nil {
				return nil, err
			}
		}
		created = append(created, model)
		models = append(models, *model)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	for i, data := range rows {
		s.afterCommit(ctx, hooks, data, created[i], true)
	}

	return models, nil
}

func (s *dataStore[T]) Update(ctx context.Context, id string, data DTO) (model *T, err error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	hooks := s.snapshot()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, hook := range hooks.PreSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, false); err != nil {
			return nil, err
		}
	}

	params := map[string]any{"id": id}
	setClause := getNonEmptyFieldsFromDTO(data, params)

	if setClause == "" {
		err = fmt.Errorf("no fields to update")
		return nil, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", s.tablename, setClause)

	res, err := tx.NamedExecContext(ctx, query, params)
	if err != nil {
		err = translateError(err)
		return nil, err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		err = fault.ErrNotFound
		return nil, err
	}

	model, err = s.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	for _, hook := range hooks.PostSave {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		if err = hook(ctx, tx, data, model, false); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, hooks, data, model, false)

	return model, nil
}

func (s *dataStore[T]) DeleteWhere(ctx context.Context, column string, value any) (affected int64, err error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	query := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.tablename, column))

	res, err := tx.ExecContext(ctx, query, value)
	if err != nil {
		err = translateError(err)
		return 0, err
	}

	affected, _ = res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return affected, nil
}

func (s *dataStore[T]) Delete(ctx context.Context, id string) (err error) {
	hooks := s.snapshot()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, hook := range hooks.PreDelete {
		if err = hook(ctx, tx, id); err != nil {
			return err
		}
	}

	query := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tablename))

	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		err = translateError(err)
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		err = fault.ErrNotFound
		return err
	}

	for _, hook := range hooks.PostDelete {
		if err = hook(ctx, tx, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *dataStore[T]) BulkUpdate(ctx context.Context, query string, args ...any) (affected int64, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		err = translateError(err)
		return 0, err
	}

	affected, err = res.RowsAffected()

	return affected, err
}

func (s *dataStore[T]) getByID(ctx context.Context, tx *sqlx.Tx, id string) (*T, error) {
	instance := new(T)

	fields := strings.Join(getStructFieldNamesFromInstance(instance), ", ")
	query := tx.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", fields, s.tablename))

	if err := tx.GetContext(ctx, instance, query, id); err != nil {
		return nil, translateError(err)
	}

	return instance, nil
}

func (s *dataStore[T]) afterCommit(ctx context.Context, hooks Hooks, data DTO, model *T, isNew bool) {
	for _, hook := range hooks.AfterSaveCommit {
		if fn := hook(ctx, data, model, isNew); fn != nil {
			fn()
		}
	}
}
