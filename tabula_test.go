package tabula_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tabworks/tabula"
	"github.com/tabworks/tabula/controller"
	"github.com/tabworks/tabula/model"
)

// The full loop: client service against the reference backend, seeded with
// the demo inventory.
func newStack(t *testing.T) (*gorm.DB, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := controller.MigrateDemo(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := controller.SeedDemo(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := gin.New()
	tabula.NewServer(r, db, &controller.Config{Tables: controller.DemoTables()}, zerolog.Nop())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return db, srv.URL
}

func TestEndToEndFilterSortAndMutate(t *testing.T) {
	db, baseURL := newStack(t)
	ctx := context.Background()

	svc := tabula.NewClient(&model.Config{
		BaseURL:   baseURL,
		ConfigDir: "config/tabula",
	}, zerolog.Nop())

	table, err := svc.OpenTable("stock_items")
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer table.Close()

	if _, err := table.Fetch(ctx); err != nil {
		t.Fatalf("initial fetch failed: %v", err)
	}
	if page := table.Page(); page.Count != 5 {
		t.Fatalf("seeded count = %d", page.Count)
	}

	// Narrow to status 10, descending quantity: 500, 250, 42.5.
	if err := table.SetFilter(ctx, "status", "=", "10"); err != nil {
		t.Fatalf("SetFilter failed: %v", err)
	}
	if err := table.SetSort(ctx, "quantity", true); err != nil {
		t.Fatalf("SetSort failed: %v", err)
	}

	page := table.Page()
	if page.Count != 3 {
		t.Fatalf("filtered count = %d", page.Count)
	}
	if loc := page.Records[0]["location"]; loc != "A1" {
		t.Errorf("top row location = %v", loc)
	}

	// Update the top row through the table and confirm both sides agree.
	id := table.RecordID(page.Records[0])
	if err := table.Update(ctx, id, map[string]any{"location": "A9"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if rec := table.Page().Records[0]; rec["location"] != "A9" {
		t.Errorf("local patch missing: %v", rec["location"])
	}
	var item controller.StockItem
	if err := db.First(&item, "pk = ?", id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if item.Location != "A9" {
		t.Errorf("server row location = %q", item.Location)
	}

	// Delete it; the page shrinks locally, the database row is gone.
	if err := table.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if page := table.Page(); len(page.Records) != 2 || page.Count != 2 {
		t.Errorf("page after delete = %+v", page)
	}
	var count int64
	db.Table("stock_items").Where("pk = ?", id).Count(&count)
	if count != 0 {
		t.Error("deleted row survived on the server")
	}
}

func TestEndToEndRangeFilter(t *testing.T) {
	_, baseURL := newStack(t)
	ctx := context.Background()

	svc := tabula.NewClient(&model.Config{
		BaseURL:   baseURL,
		ConfigDir: "config/tabula",
	}, zerolog.Nop())

	table, err := svc.OpenTable("stock_items")
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer table.Close()

	// 10 <= quantity <= 300 matches 250, 12 and 42.5.
	if err := table.SetFilter(ctx, "quantity", "range", "10..300"); err != nil {
		t.Fatalf("range filter failed: %v", err)
	}
	if page := table.Page(); page.Count != 3 {
		t.Errorf("range count = %d", page.Count)
	}
}

func TestEndToEndCreateAndDuplicate(t *testing.T) {
	db, baseURL := newStack(t)
	ctx := context.Background()

	svc := tabula.NewClient(&model.Config{
		BaseURL:   baseURL,
		ConfigDir: "config/tabula",
	}, zerolog.Nop())

	table, err := svc.OpenTable("parts")
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	defer table.Close()

	created, err := table.Create(ctx, map[string]any{
		"name":   "M5 Bolt",
		"ipn":    "FAST-010",
		"active": true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created["name"] != "M5 Bolt" {
		t.Errorf("created record = %+v", created)
	}

	var count int64
	db.Table("parts").Where("ipn = ?", "FAST-010").Count(&count)
	if count != 1 {
		t.Fatalf("created rows = %d", count)
	}
	var fresh controller.Part
	if err := db.First(&fresh, "ipn = ?", "FAST-010").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if table.RecordID(created) != fresh.PK {
		t.Errorf("created record pk = %v, database row pk = %d", created["pk"], fresh.PK)
	}

	// Duplicate an on-page record: copy without the primary key.
	if _, err := table.Fetch(ctx); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	id := table.RecordID(table.Page().Records[0])
	if _, err := table.Duplicate(ctx, id); err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}

	var part controller.Part
	db.First(&part, "pk = ?", id)
	db.Table("parts").Where("name = ?", part.Name).Count(&count)
	if count != 2 {
		t.Errorf("rows named %q = %d, want the original plus the copy", part.Name, count)
	}
}
