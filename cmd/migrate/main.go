package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	grantcache "github.com/asakaida/skillperm/internal/infrastructure/cache"
	"github.com/asakaida/skillperm/internal/infrastructure/config"
	"github.com/asakaida/skillperm/internal/infrastructure/database"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/asakaida/skillperm/internal/repositories/cached"
	"github.com/asakaida/skillperm/internal/repositories/sqlstore"
	"github.com/asakaida/skillperm/internal/services"
	"github.com/asakaida/skillperm/pkg/cache/memorycache"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	db      *database.Database
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for skillperm",
	Long: `Database migration tool for skillperm.
Manages PostgreSQL or SQLite schema migrations using golang-migrate.
Migration files are embedded in the binary.`,
	PersistentPreRun: setupDatabase,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long:  `Apply all pending migrations to the database.`,
	Run:   runUp,
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runDown,
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Long:  `Migrate to a specific version number.`,
	Args:  cobra.ExactArgs(1),
	Run:   runGoto,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	Long:  `Display the current migration version of the database and the versions embedded in this binary.`,
	Run:   runVersion,
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	Run:   runForce,
}

var seedCmd = &cobra.Command{
	Use:   "seed <directory.yaml>",
	Short: "Import organizations, members, skills and grants from a YAML file",
	Long: `Import organizations, members, skills and initial grants from a YAML
directory file. Rows that already exist are skipped, grants are overwritten.
Run "up" first.`,
	Args: cobra.ExactArgs(1),
	Run:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(forceCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) {
	log.Printf("Using environment: %s", envFlag)

	if err := config.InitConfig(envFlag); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err = database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if db.Driver == config.DriverSQLite {
		log.Printf("Connected to database: sqlite %s", cfg.Database.Path)
		return
	}
	log.Printf("Connected to database: %s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database)
}

// newMigrate fails the command if the migrate instance cannot be built.
// Closing the instance also closes the database.
func newMigrate() *migrate.Migrate {
	m, err := db.NewMigrate()
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	return m
}

func parseNonNegative(arg string, what string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		log.Fatalf("Invalid %s %q: must be a non-negative integer", what, arg)
	}
	return n
}

func runUp(cmd *cobra.Command, args []string) {
	m := newMigrate()
	defer m.Close()

	err := m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("No migrations to apply")
	case err != nil:
		log.Fatalf("Migration up failed: %v", err)
	default:
		log.Println("Migration up completed successfully")
	}
}

func runDown(cmd *cobra.Command, args []string) {
	steps := 1
	if len(args) > 0 {
		steps = parseNonNegative(args[0], "steps")
	}

	m := newMigrate()
	defer m.Close()

	err := m.Steps(-steps)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("No migrations to rollback")
	case err != nil:
		log.Fatalf("Migration down failed: %v", err)
	default:
		log.Printf("Migration down completed successfully (rolled back %d migration(s))", steps)
	}
}

func runGoto(cmd *cobra.Command, args []string) {
	version := parseNonNegative(args[0], "version")

	m := newMigrate()
	defer m.Close()

	err := m.Migrate(uint(version))
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Printf("Already at version %d", version)
	case err != nil:
		log.Fatalf("Migration goto failed: %v", err)
	default:
		log.Printf("Migration goto %d completed successfully", version)
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	embedded, err := database.MigrationVersions()
	if err != nil {
		log.Fatalf("Failed to list embedded migrations: %v", err)
	}
	log.Printf("Embedded migrations: %v", embedded)

	m := newMigrate()
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Println("Current version: No migrations applied yet")
		return
	}
	if err != nil {
		log.Fatalf("Failed to get version: %v", err)
	}

	if dirty {
		log.Printf("Current version: %d (dirty - migration may have failed)", version)
	} else {
		log.Printf("Current version: %d", version)
	}
}

func runForce(cmd *cobra.Command, args []string) {
	version := parseNonNegative(args[0], "version")

	m := newMigrate()
	defer m.Close()

	if err := m.Force(version); err != nil {
		log.Fatalf("Migration force failed: %v", err)
	}

	log.Printf("Migration forced to version %d", version)
}

func runSeed(cmd *cobra.Command, args []string) {
	defer db.Close()

	f, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Failed to open directory file: %v", err)
	}
	defer f.Close()

	dir, err := services.ParseDirectory(f)
	if err != nil {
		log.Fatalf("Failed to read directory file: %v", err)
	}

	var permissionRepo repositories.PermissionRepository = sqlstore.NewPermissionRepository(db.DB)

	// Running servers drop their cached grants for every seeded pair
	if db.Driver == config.DriverPostgres {
		scratch, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
		if err != nil {
			log.Fatalf("Failed to create cache: %v", err)
		}
		defer scratch.Close()

		cachedRepo := cached.NewPermissionRepository(permissionRepo, scratch, time.Minute, nil)
		cachedRepo.SetPublisher(grantcache.NewGrantNotifier(db.DB, "", cachedRepo))
		permissionRepo = cachedRepo
	}

	directory := services.NewDirectoryService(
		sqlstore.NewOrganizationRepository(db.DB),
		sqlstore.NewMemberRepository(db.DB),
		sqlstore.NewSkillRepository(db.DB),
		permissionRepo,
	)

	result, err := directory.Import(context.Background(), dir)
	if err != nil {
		log.Fatalf("Seed failed: %v", err)
	}

	log.Printf("Seed completed: %d organization(s), %d member(s), %d skill(s), %d grant(s) written, %d existing row(s) skipped",
		result.Organizations, result.Members, result.Skills, result.Grants, result.Skipped)
}
