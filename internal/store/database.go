package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedatabase "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverNameConstant           = "sqlite"
	postgresDriverNameConstant         = "postgres"
	migrationsRootConstant             = "migrations"
	timestampLayoutConstant            = "2006-01-02T15:04:05.000000000Z"
	openErrorTemplateConstant          = "open %s database: %w"
	pingErrorTemplateConstant          = "ping %s database: %w"
	pragmaErrorTemplateConstant        = "apply sqlite pragma %q: %w"
	migrationErrorTemplateConstant     = "migrate %s database: %w"
	unsupportedDialectTemplateConstant = "unsupported database dialect %q"
	dataSourceRequiredMessageConstant  = "database data source name must be provided"
)

//go:embed migrations
var migrationFiles embed.FS

// ErrDataSourceRequired indicates an empty DSN.
var ErrDataSourceRequired = errors.New(dataSourceRequiredMessageConstant)

// Dialect identifies the SQL database flavour backing the store.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
}

// Config selects and locates the database.
type Config struct {
	Dialect Dialect `mapstructure:"dialect"`
	DSN     string  `mapstructure:"dsn"`
}

// Database wraps a migrated *sql.DB and implements the repository, settings, and journal stores.
type Database struct {
	connection *sql.DB
	dialect    Dialect
	now        func() time.Time
}

// Open connects to the configured database and applies pending migrations.
func Open(executionContext context.Context, configuration Config) (*Database, error) {
	dialect := Dialect(strings.ToLower(strings.TrimSpace(string(configuration.Dialect))))
	if len(dialect) == 0 {
		dialect = DialectSQLite
	}
	dataSourceName := strings.TrimSpace(configuration.DSN)
	if len(dataSourceName) == 0 {
		return nil, ErrDataSourceRequired
	}

	var driverName string
	switch dialect {
	case DialectSQLite:
		driverName = sqliteDriverNameConstant
	case DialectPostgres:
		driverName = postgresDriverNameConstant
	default:
		return nil, fmt.Errorf(unsupportedDialectTemplateConstant, dialect)
	}

	connection, openError := sql.Open(driverName, dataSourceName)
	if openError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, dialect, openError)
	}

	if dialect == DialectSQLite {
		connection.SetMaxOpenConns(1)
		for _, pragma := range sqlitePragmas {
			if _, pragmaError := connection.ExecContext(executionContext, pragma); pragmaError != nil {
				connection.Close()
				return nil, fmt.Errorf(pragmaErrorTemplateConstant, pragma, pragmaError)
			}
		}
	}

	if pingError := connection.PingContext(executionContext); pingError != nil {
		connection.Close()
		return nil, fmt.Errorf(pingErrorTemplateConstant, dialect, pingError)
	}

	database := &Database{connection: connection, dialect: dialect, now: time.Now}
	if migrationError := database.migrate(); migrationError != nil {
		connection.Close()
		return nil, migrationError
	}
	return database, nil
}

// Dialect reports the active SQL dialect.
func (database *Database) Dialect() Dialect {
	return database.dialect
}

// Close releases the connection pool.
func (database *Database) Close() error {
	return database.connection.Close()
}

func (database *Database) migrate() error {
	migrationDirectory, subError := fs.Sub(migrationFiles, migrationsRootConstant+"/"+string(database.dialect))
	if subError != nil {
		return fmt.Errorf(migrationErrorTemplateConstant, database.dialect, subError)
	}
	sourceDriver, sourceError := iofs.New(migrationDirectory, ".")
	if sourceError != nil {
		return fmt.Errorf(migrationErrorTemplateConstant, database.dialect, sourceError)
	}

	var databaseDriver migratedatabase.Driver
	var driverError error
	switch database.dialect {
	case DialectPostgres:
		databaseDriver, driverError = postgres.WithInstance(database.connection, &postgres.Config{})
	default:
		databaseDriver, driverError = sqlite.WithInstance(database.connection, &sqlite.Config{})
	}
	if driverError != nil {
		return fmt.Errorf(migrationErrorTemplateConstant, database.dialect, driverError)
	}

	migrator, migratorError := migrate.NewWithInstance("iofs", sourceDriver, string(database.dialect), databaseDriver)
	if migratorError != nil {
		return fmt.Errorf(migrationErrorTemplateConstant, database.dialect, migratorError)
	}
	if upError := migrator.Up(); upError != nil && !errors.Is(upError, migrate.ErrNoChange) {
		return fmt.Errorf(migrationErrorTemplateConstant, database.dialect, upError)
	}
	return nil
}

// rebind converts ? placeholders into the positional form PostgreSQL expects.
func (database *Database) rebind(query string) string {
	if database.dialect != DialectPostgres {
		return query
	}
	var builder strings.Builder
	parameterIndex := 0
	for _, character := range query {
		if character == '?' {
			parameterIndex++
			builder.WriteString("$" + strconv.Itoa(parameterIndex))
			continue
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

func formatTimestamp(moment time.Time) string {
	if moment.IsZero() {
		return ""
	}
	return moment.UTC().Format(timestampLayoutConstant)
}

func parseTimestamp(value string) time.Time {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return time.Time{}
	}
	parsed, parseError := time.Parse(timestampLayoutConstant, trimmedValue)
	if parseError != nil {
		parsed, parseError = time.Parse(time.RFC3339Nano, trimmedValue)
		if parseError != nil {
			return time.Time{}
		}
	}
	return parsed.UTC()
}
