package seeders

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/config"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
)

func TestSeedAdminIsIdempotent(t *testing.T) {
	config.Set("SEED_ADMIN_EMAIL", "seed@coursemart.test")
	config.Set("SEED_ADMIN_PASSWORD", "seedpass")

	ctx := context.Background()
	store := repositories.NewMemoryStore()

	var out bytes.Buffer
	if err := RunAll(ctx, store, &out); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunAll(ctx, store, &out); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(out.String(), "admins") {
		t.Errorf("expected progress output, got %q", out.String())
	}

	admin, err := store.Admins().FindByEmail(ctx, "seed@coursemart.test")
	if err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	if !auth.CheckPassword(admin.Password, "seedpass") {
		t.Error("seeded password does not verify")
	}
}
