package sqlstore

import (
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/asakaida/skillperm/internal/infrastructure/config"
	"github.com/asakaida/skillperm/internal/infrastructure/database"
)

// SetupTestDB returns a migrated database for tests.
// With INTEGRATION set it connects to the PostgreSQL configured for the test
// environment; otherwise it uses a private in-memory SQLite database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	var (
		db  *database.Database
		err error
	)
	if os.Getenv("INTEGRATION") != "" {
		if err := config.InitConfig("test"); err != nil {
			t.Fatalf("Failed to init config: %v", err)
		}
		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		db, err = database.Open(&cfg.Database)
		if err != nil {
			t.Fatalf("Failed to connect to database: %v", err)
		}
	} else {
		db, err = database.NewSQLite(":memory:")
		if err != nil {
			t.Fatalf("Failed to open sqlite: %v", err)
		}
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db.DB
}

// CleanupTestDB removes test data and closes the database connection
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	tables := []string{"audit_events", "permissions", "skills", "members", "organizations"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// SeedFixture holds the rows created by Seed
type SeedFixture struct {
	OrganizationID      string
	OtherOrganizationID string
	MemberIDs           map[string]string // display name -> member ID
	SkillIDs            map[string]string // skill name -> skill ID
}

// Seed creates two organizations. "acme" has members alice, bob, carol and
// skills deploy (restricted) and weather (unrestricted); "globex" has member
// mallory and skill payroll (restricted).
func Seed(t *testing.T, db *sql.DB) *SeedFixture {
	t.Helper()

	fx := &SeedFixture{
		OrganizationID:      "org-acme",
		OtherOrganizationID: "org-globex",
		MemberIDs:           map[string]string{},
		SkillIDs:            map[string]string{},
	}

	now := time.Now().UTC()
	exec := func(query string, args ...interface{}) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}

	exec(`INSERT INTO organizations (id, name, platform_id, created_at) VALUES ($1, $2, $3, $4)`,
		fx.OrganizationID, "Acme", "T-ACME", now)
	exec(`INSERT INTO organizations (id, name, platform_id, created_at) VALUES ($1, $2, $3, $4)`,
		fx.OtherOrganizationID, "Globex", "T-GLOBEX", now)

	members := []struct{ org, name string }{
		{fx.OrganizationID, "alice"},
		{fx.OrganizationID, "bob"},
		{fx.OrganizationID, "carol"},
		{fx.OtherOrganizationID, "mallory"},
	}
	for _, m := range members {
		id := "member-" + m.name
		exec(`INSERT INTO members (id, organization_id, display_name, created_at) VALUES ($1, $2, $3, $4)`,
			id, m.org, m.name, now)
		fx.MemberIDs[m.name] = id
	}

	skills := []struct {
		org, name  string
		restricted bool
	}{
		{fx.OrganizationID, "deploy", true},
		{fx.OrganizationID, "weather", false},
		{fx.OtherOrganizationID, "payroll", true},
	}
	for _, s := range skills {
		id := "skill-" + s.name
		exec(`INSERT INTO skills (id, organization_id, name, restricted, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5)`,
			id, s.org, s.name, s.restricted, now)
		fx.SkillIDs[s.name] = id
	}

	return fx
}
