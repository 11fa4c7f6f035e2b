package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection parameters for the
// PostgreSQL storage collaborator.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// NewDatabaseConfiguration reads the database configuration from the
// environment (loading a .env file first when present).
// Required envs: MEMOGRAPH_DB_HOST, MEMOGRAPH_DB_PORT, MEMOGRAPH_DB_NAME,
// MEMOGRAPH_DB_USER, MEMOGRAPH_DB_PASSWORD. MEMOGRAPH_DB_SSLMODE is
// optional and defaults to "disable".
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("MEMOGRAPH_DB_HOST"),
		Port:     os.Getenv("MEMOGRAPH_DB_PORT"),
		Name:     os.Getenv("MEMOGRAPH_DB_NAME"),
		User:     os.Getenv("MEMOGRAPH_DB_USER"),
		Password: os.Getenv("MEMOGRAPH_DB_PASSWORD"),
		SSLMode:  os.Getenv("MEMOGRAPH_DB_SSLMODE"),
	}

	if config.Host == "" || config.Port == "" || config.Name == "" || config.User == "" || config.Password == "" {
		return nil, NewError("database configuration", fmt.Errorf("missing required MEMOGRAPH_DB_* environment variables"))
	}

	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return config, nil
}

// ConnectionString builds the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode,
	)
}

// Database wraps the sql.DB instance together with the logger all
// database handlers log through.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection to the configured PostgreSQL database.
// It panics if the database is not reachable, as no handler can work
// without a connection.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) *Database {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		log.Panicf("error opening database connection: %v", err)
	}

	// Give a freshly started database a moment to come up.
	for i := 0; i < 5; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(i) * 500 * time.Millisecond)
	}
	if err != nil {
		log.Panicf("error pinging database: %v", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: db,
		Logger:   logger,
	}
}

// NewTestDatabase opens a database connection with a debug-level pretty
// logger, intended for use in tests.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	logger := slog.New(NewPrettyHandler(os.Stdout, opts))
	return NewDatabase("memograph_test", config, logger)
}

// SetTestDatabaseConfigEnvs sets the MEMOGRAPH_DB_* environment variables
// pointing at the test container started by MustStartPostgresContainer.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("MEMOGRAPH_DB_HOST", "localhost")
	t.Setenv("MEMOGRAPH_DB_PORT", port)
	t.Setenv("MEMOGRAPH_DB_NAME", testDatabaseName)
	t.Setenv("MEMOGRAPH_DB_USER", testDatabaseUser)
	t.Setenv("MEMOGRAPH_DB_PASSWORD", testDatabasePassword)
	t.Setenv("MEMOGRAPH_DB_SSLMODE", "disable")
}
