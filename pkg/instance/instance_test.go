package instance

import "testing"

func TestIDPrefersExplicitValue(t *testing.T) {
	t.Setenv("PETFINDER_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	if got := ID("api"); got != "api-7" {
		t.Fatalf("expected explicit id, got %q", got)
	}
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("PETFINDER_INSTANCE_ID", "")
	t.Setenv("DYNO", "worker.2")
	if got := ID("cron-worker"); got != "worker.2" {
		t.Fatalf("expected dyno, got %q", got)
	}
}
