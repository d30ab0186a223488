package paginator

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/paulexconde/dfsurvey/internal/config"
	"github.com/paulexconde/dfsurvey/internal/db"
	"github.com/paulexconde/dfsurvey/internal/models"
	"github.com/paulexconde/dfsurvey/internal/pkg/store"
)

func TestPaginateQuery(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "page.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := db.ApplySchema(ctx, conn); err != nil {
		t.Fatalf("schema: %v", err)
	}

	ds := store.NewDataStore[models.Category](conn, "categories")
	for i := range 5 {
		id := fmt.Sprintf("c%d", i)
		if _, err := ds.Create(ctx, models.Category{ID: id, Name: "name-" + id, CreatedAt: store.Now()}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	p := NewPaginator[models.Category](ds)
	query := "SELECT * FROM categories WHERE name LIKE ? ORDER BY id"

	tests := []struct {
		page, limit int
		items       int
		first       string
		prev, next  *int
		totalPages  int
	}{
		{page: 1, limit: 2, items: 2, first: "c0", next: intPtr(2), totalPages: 3},
		{page: 3, limit: 2, items: 1, first: "c4", prev: intPtr(2), totalPages: 3},
		{page: 0, limit: 0, items: 5, first: "c0", totalPages: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d limit %d", tt.page, tt.limit), func(t *testing.T) {
			res, err := p.PaginateQuery(ctx, query, []any{"name-%"}, tt.page, tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Items) != tt.items || res.Items[0].ID != tt.first {
				t.Errorf("unexpected items %+v", res.Items)
			}
			if res.TotalItems != 5 || res.TotalPages != tt.totalPages {
				t.Errorf("unexpected totals %d/%d", res.TotalItems, res.TotalPages)
			}
			if !samePage(res.PrevPage, tt.prev) || !samePage(res.NextPage, tt.next) {
				t.Errorf("unexpected prev/next %v/%v", res.PrevPage, res.NextPage)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func samePage(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
