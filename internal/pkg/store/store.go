package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// TimeLayout is the fixed-width layout timestamps are written with so that
// they sort lexically on drivers that store them as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Now returns the current UTC time formatted with TimeLayout.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// DTO is a row written through a datastore.
type DTO interface {
	PrimaryKey() string
}

// This type of hook separates from the regular PostSave hook since it has side effects
type AfterSaveCommitHook func()

// Hooks for database operations
type Hooks struct {
	PreSave         []func(ctx context.Context, tx *sqlx.Tx, data DTO, isNew bool) error
	PostSave        []func(ctx context.Context, tx *sqlx.Tx, data DTO, model any, isNew bool) error
	PreDelete       []func(ctx context.Context, tx *sqlx.Tx, id string) error
	PostDelete      []func(ctx context.Context, tx *sqlx.Tx, id string) error
	AfterSaveCommit []func(ctx context.Context, data DTO, model any, isNew bool) AfterSaveCommitHook
}

// Datastorer is the generic table access used by the services. Queries are
// written with '?' placeholders and rebound for the open driver.
type Datastorer[T any] interface {
	Create(ctx context.Context, data DTO) (*T, error)
	CreateMany(ctx context.Context, rows []DTO) ([]T, error)
	Update(ctx context.Context, id string, data DTO) (*T, error)
	Delete(ctx context.Context, id string) error
	QueryRow(ctx context.Context, query string, args ...any) (any, error)
	Get(ctx context.Context, query string, args ...any) (*T, error)
	Select(ctx context.Context, query string, args ...any) ([]T, error)

	// WARN: DeleteWhere does not yet support hooks execution.
	DeleteWhere(ctx context.Context, column string, value any) (int64, error)

	// WARN: BulkUpdate does not run hooks.
	BulkUpdate(ctx context.Context, query string, args ...any) (int64, error)
	// Set hooks.
	SetHooks(hooks Hooks)

	// useful for complex operations wherein store interface does not supported.
	Base() *sqlx.DB
}

func getStructFieldNamesFromInstance(instance any) []string {
	typ := reflect.TypeOf(instance)
	if typ.Kind() == reflect.Ptr { // Handle pointer types
		typ = typ.Elem()
	}

	var fields []string

	for i := range typ.NumField() {
		field := typ.Field(i)
		dbTag := field.Tag.Get("db")

		if dbTag != "" && dbTag != "-" {
			fields = append(fields, dbTag)
		}
	}

	return fields
}

// getStructFieldsFromDTO extracts column names and named placeholders from a DTO struct
func getStructFieldsFromDTO(dto DTO) (columns string, placeholders string) {
	t := reflect.TypeOf(dto)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var columnNames []string
	var placeholderNames []string

	for i := range t.NumField() {
		dbTag := t.Field(i).Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		columnNames = append(columnNames, dbTag)
		placeholderNames = append(placeholderNames, ":"+dbTag)
	}

	return strings.Join(columnNames, ", "), strings.Join(placeholderNames, ", ")
}

// getNonEmptyFieldsFromDTO builds the SET clause of an update. Zero strings,
// nil pointers and NULL valuers are left untouched, and so is the key.
func getNonEmptyFieldsFromDTO(dto DTO, params map[string]any) string {
	v := reflect.ValueOf(dto)
	t := reflect.TypeOf(dto)

	if v.Kind() == reflect.Ptr {
		v = v.Elem()
		t = t.Elem()
	}

	var fields []string

	for i := range v.NumField() {
		field := t.Field(i)
		value := v.Field(i)

		columnName := field.Tag.Get("db")
		if columnName == "-" || columnName == "id" {
			continue
		}
		if columnName == "" {
			columnName = strings.ToLower(field.Name)
		}

		if value.Kind() == reflect.Ptr && value.IsNil() || value.Kind() == reflect.String && value.String() == "" {
			continue
		}

		if valuer, ok := value.Interface().(driver.Valuer); ok {
			if dv, err := valuer.Value(); err == nil && dv == nil {
				continue
			}
		}

		fields = append(fields, fmt.Sprintf("%s = :%s", columnName, columnName))
		params[columnName] = value.Interface()
	}

	return strings.Join(fields, ", ")
}
