package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
)

const versionLayout = "20060102150405"

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9]+(?:_[a-z0-9]+)*)\.sql$`)
	nonSlugRe       = regexp.MustCompile(`[^a-z0-9]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// NewMigrationFile writes an empty goose migration named
// <dir>/<UTC version>_<slug>.sql and returns its path.
func NewMigrationFile(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("migrations dir is required")
	}
	slug := strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, now.UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	_, werr := fmt.Fprintf(f, migrationTemplate, slug)
	if err := multierr.Append(werr, f.Close()); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// CheckDir reports every malformed migration in dir at once: bad file names,
// a missing or misordered Up/Down section, and versions goose itself would
// refuse to load.
func CheckDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	var errs error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		errs = multierr.Append(errs, checkFile(dir, e.Name()))
	}
	if errs != nil {
		return errs
	}
	if _, err := goose.CollectMigrations(dir, 0, goose.MaxVersion); err != nil {
		return fmt.Errorf("goose rejected %s: %w", dir, err)
	}
	return nil
}

func checkFile(dir, name string) error {
	if !migrationFileRe.MatchString(name) {
		return fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_snake_name.sql", name)
	}
	if _, err := time.Parse(versionLayout, name[:14]); err != nil {
		return fmt.Errorf("%s: version is not a timestamp", name)
	}
	body, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	up := strings.Index(string(body), "-- +goose Up")
	down := strings.Index(string(body), "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("%s: missing -- +goose Up", name)
	case down < 0:
		return fmt.Errorf("%s: missing -- +goose Down", name)
	case down < up:
		return fmt.Errorf("%s: -- +goose Down comes before -- +goose Up", name)
	}
	return nil
}
