package config

import "testing"

func TestS3ConfigMissingRequired(t *testing.T) {
	cfg := S3Config{
		Endpoint: "https://storage.yandexcloud.net",
		Bucket:   "exports",
	}
	missing := cfg.MissingRequired()

	want := []string{"S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_PUBLIC_BASE_URL"}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %d (%v)", len(want), len(missing), missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected missing[%d]=%s, got %s", i, want[i], missing[i])
		}
	}
	if cfg.IsConfigured() {
		t.Fatal("expected IsConfigured=false for partial config")
	}

	level, code, _ := cfg.Diagnostics()
	if level != "WARN" || code != "s3_partial_config" {
		t.Fatalf("expected WARN/s3_partial_config, got %s/%s", level, code)
	}
	level, code, _ = (S3Config{}).Diagnostics()
	if level != "INFO" || code != "s3_not_configured" {
		t.Fatalf("expected INFO/s3_not_configured, got %s/%s", level, code)
	}
}

func TestBlobConfigEffectiveExportsMode(t *testing.T) {
	cfg := BlobConfig{Mode: BlobModeS3, ExportsMode: BlobModeLocal}
	if got := cfg.EffectiveExportsMode(); got != BlobModeS3 {
		t.Errorf("expected blob mode when override unset, got %s", got)
	}
	cfg.ExportsModeSet = true
	if got := cfg.EffectiveExportsMode(); got != BlobModeLocal {
		t.Errorf("expected override mode, got %s", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "ENV", "PORT", "DATABASE_URL", "DATABASE_URL_POOLED", "DATABASE_URL_DIRECT",
		"SQLITE_PATH", "AUTH_MODE", "AUTH_REQUIRED", "JWT_ISSUER", "EXPORTS_TTL_HOURS",
		"EXPORTS_PURGE_SCHEDULE", "MEALGEN_DEFAULT_DAYS", "MEALGEN_DEFAULT_MEALS",
		"MEALGEN_DEFAULT_TOLERANCE", "MEALGEN_MAX_DAYS", "BLOB_MODE", "EXPORTS_MODE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Env != "local" {
		t.Errorf("expected env local, got %s", cfg.Env)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.AuthMode != "none" || cfg.AuthRequired {
		t.Errorf("expected auth none and not required, got %s/%t", cfg.AuthMode, cfg.AuthRequired)
	}
	if cfg.JWTIssuer != "coach-hub" {
		t.Errorf("expected issuer coach-hub, got %s", cfg.JWTIssuer)
	}
	if cfg.MealGen.DefaultDays != 7 || cfg.MealGen.DefaultMeals != 4 || cfg.MealGen.DefaultTolerance != 0.1 {
		t.Errorf("unexpected mealgen defaults: %+v", cfg.MealGen)
	}
	if cfg.ExportsTTLHours != 168 || cfg.ExportsPurgeSchedule != "@every 1h" {
		t.Errorf("unexpected exports defaults: %d %q", cfg.ExportsTTLHours, cfg.ExportsPurgeSchedule)
	}
	if cfg.Blob.Mode != BlobModeLocal || cfg.Blob.ExportsModeSet {
		t.Errorf("unexpected blob config: %+v", cfg.Blob)
	}
}

func TestLoadFallbacks(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("DATABASE_URL_POOLED", "")
	t.Setenv("DATABASE_URL", "postgres://app@db/coach")
	t.Setenv("DATABASE_URL_DIRECT", "postgres://app@db-direct/coach")
	t.Setenv("AUTH_MODE", "siwa")
	t.Setenv("MEALGEN_DEFAULT_MEALS", "9")
	t.Setenv("MEALGEN_DEFAULT_DAYS", "40")
	t.Setenv("MEALGEN_MAX_DAYS", "14")
	t.Setenv("EXPORTS_MODE", "ftp")

	cfg := Load()

	if cfg.DatabaseURL != "postgres://app@db/coach" {
		t.Errorf("expected DATABASE_URL to win over direct, got %s", cfg.DatabaseURL)
	}
	if cfg.AuthMode != "none" {
		t.Errorf("expected unknown auth mode to fall back to none, got %s", cfg.AuthMode)
	}
	if cfg.MealGen.DefaultMeals != 4 {
		t.Errorf("expected meals fallback 4, got %d", cfg.MealGen.DefaultMeals)
	}
	if cfg.MealGen.DefaultDays != 14 {
		t.Errorf("expected days capped at 14, got %d", cfg.MealGen.DefaultDays)
	}
	if !cfg.Blob.ExportsModeSet || cfg.Blob.ExportsMode != BlobModeLocal {
		t.Errorf("expected exports mode local fallback, got %+v", cfg.Blob)
	}
}
