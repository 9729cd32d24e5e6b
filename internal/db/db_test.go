package db

import (
	"context"
	"testing"

	"github.com/diewo77/go-bloodbank/internal/config"
	"github.com/diewo77/go-bloodbank/internal/models"
)

func TestConnectAndMigrateSQLiteSeeds(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", DSN: "file:dbtest_seed?mode=memory&cache=shared", Seed: true}
	db, err := ConnectAndMigrate(context.Background(), cfg, Options{Retries: 1})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	var n int64
	db.Model(&models.StockThreshold{}).Where("organisation_id = ?", models.DefaultThresholdOwner).Count(&n)
	if n != int64(len(models.AllBloodGroups)) {
		t.Fatalf("default thresholds = %d, want %d", n, len(models.AllBloodGroups))
	}

	// a second seed keeps edited rows
	db.Model(&models.StockThreshold{}).
		Where("organisation_id = ? AND blood_group = ?", models.DefaultThresholdOwner, models.ONeg).
		Update("min_ml", 900)
	if err := Seed(context.Background(), db); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	var th models.StockThreshold
	db.Where("organisation_id = ? AND blood_group = ?", models.DefaultThresholdOwner, models.ONeg).First(&th)
	if th.MinMl != 900 {
		t.Errorf("O- min = %d, want 900", th.MinMl)
	}
	db.Model(&models.StockThreshold{}).Count(&n)
	if n != int64(len(models.AllBloodGroups)) {
		t.Errorf("rows after reseed = %d", n)
	}
}

func TestConnectAndMigrateRejectsEmptyDSN(t *testing.T) {
	_, err := ConnectAndMigrate(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, Options{Retries: 1})
	if err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{`"postgres://u:p@h/db"`, "postgres://u:p@h/db"},
		{"host=db  user=u dbname=x", "host=db user=u dbname=x sslmode=disable"},
		{"host=db user=u dbname=x sslmode=require", "host=db user=u dbname=x sslmode=require"},
	}
	for _, tt := range tests {
		if got := NormalizeDSN(tt.in); got != tt.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=bb password=secret dbname=console sslmode=disable")
	want := "postgres://bb:secret@db:5432/console?sslmode=disable"
	if got != want {
		t.Errorf("ToURLDSN = %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Errorf("partial dsn changed: %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=db password=secret dbname=x"); got != "host=db password=*** dbname=x" {
		t.Errorf("kv mask = %q", got)
	}
	if got := MaskDSN("postgres://bb:secret@db:5432/console"); got != "postgres://bb:***@db:5432/console" {
		t.Errorf("url mask = %q", got)
	}
}
