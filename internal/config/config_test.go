package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromAppliesDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	base := "mongo:\n  uri: mongodb://localhost:27017\n  database: church\nmail:\n  from: agenda@church.org\nnotify:\n  max_retries: 5\n"
	if err := os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("SCHEDULE_TIMEZONE", "")

	cfg, err := LoadFrom("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mongo.URI != "mongodb://mongo:27017" || cfg.Mongo.TasksCollection != "content_schedule" {
		t.Fatalf("unexpected mongo config %+v", cfg.Mongo)
	}
	if cfg.Notify.MaxRetries != 5 || cfg.Notify.DedupeTTL != 24*time.Hour {
		t.Fatalf("unexpected notify config %+v", cfg.Notify)
	}
	if cfg.Schedule.Timezone != "America/Sao_Paulo" || cfg.Mail.Driver != "log" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Schedule, cfg.Mail)
	}
	if cfg.Runner.WeeklySpec != "0 0 8 * * 1" {
		t.Fatalf("unexpected weekly spec %q", cfg.Runner.WeeklySpec)
	}
}
