package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/joho/godotenv/autoload"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"musicalog/internal/logging"
)

func main() {
	logging.SetGlobalLogger(logging.New(logging.Config{Format: "text", Output: os.Stderr}))

	if err := newApp().Run(os.Args); err != nil {
		logging.Error(err, "migration failed")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "migrate"
	app.Usage = "Manage the musicalog Postgres schema."
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "postgres connection string",
			EnvVars:  []string{"DATABASE_URL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "source",
			Value:   "file://migrations",
			Usage:   "migration source URL",
			EnvVars: []string{"MIGRATIONS_SOURCE"},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:   "up",
			Usage:  "apply all pending migrations",
			Action: withMigrator(up),
		},
		{
			Name:  "down",
			Usage: "roll back migrations",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "steps",
					Usage: "number of migrations to roll back; 0 rolls back everything",
				},
			},
			Action: withMigrator(down),
		},
		{
			Name:   "version",
			Usage:  "print the applied schema version",
			Action: withMigrator(version),
		},
		{
			Name:      "force",
			Usage:     "mark a version as applied without running it, clearing the dirty flag",
			ArgsUsage: "VERSION",
			Action:    withMigrator(force),
		},
	}
	return app
}

func withMigrator(action func(*cli.Context, *migrate.Migrate) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := sql.Open("postgres", c.String("database-url"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return fmt.Errorf("create postgres driver: %w", err)
		}

		m, err := migrate.NewWithDatabaseInstance(c.String("source"), "postgres", driver)
		if err != nil {
			return fmt.Errorf("create migrate instance: %w", err)
		}
		defer m.Close()

		return action(c, m)
	}
}

func up(_ *cli.Context, m *migrate.Migrate) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logging.Info("schema already up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logging.Info("migrations applied successfully")
	return nil
}

func down(c *cli.Context, m *migrate.Migrate) error {
	steps := c.Int("steps")
	if steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", steps)
	}

	var err error
	if steps == 0 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	logging.Info("migrations rolled back successfully")
	return nil
}

func version(c *cli.Context, m *migrate.Migrate) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Fprintln(c.App.Writer, "no migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "version %d (dirty: %t)\n", v, dirty)
	return nil
}

func force(c *cli.Context, m *migrate.Migrate) error {
	var v int
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &v); err != nil {
		return fmt.Errorf("force needs a numeric VERSION argument: %w", err)
	}
	if err := m.Force(v); err != nil {
		return fmt.Errorf("force version %d: %w", v, err)
	}
	logging.Info(fmt.Sprintf("forced schema version %d", v))
	return nil
}
