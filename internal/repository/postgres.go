package repository

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/UnknownOlympus/addr2coo/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of *pgxpool.Pool used by PostgresStore.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// DSN returns the connection URL for the configuration.
func (c PostgresConfig) DSN() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}

	return dsn.String()
}

// NewDatabase opens a connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, config PostgresConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// PostgresStore keeps the output set in the geocoded_addresses table.
// Rows are returned in insertion order, which mirrors the append order of the CSV store.
type PostgresStore struct {
	db  Database
	log *slog.Logger
}

// NewPostgresStore creates a new PostgresStore using the provided Database.
func NewPostgresStore(db Database, log *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// EnsureSchema creates the geocoded_addresses table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS geocoded_addresses (
			id        BIGSERIAL PRIMARY KEY,
			address   TEXT NOT NULL UNIQUE,
			longitude DOUBLE PRECISION,
			latitude  DOUBLE PRECISION
		);
	`

	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create geocoded_addresses table: %w", err)
	}

	return nil
}

// Load retrieves every stored address ordered by insertion.
// The table always exists once EnsureSchema ran, so the returned set is always found.
func (s *PostgresStore) Load(ctx context.Context) (models.OutputSet, error) {
	query := `
		SELECT address, longitude, latitude
		FROM geocoded_addresses
		ORDER BY id ASC;
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return models.OutputSet{}, fmt.Errorf("failed to query geocoded addresses: %w", err)
	}
	defer rows.Close()

	var records []models.AddressRecord
	for rows.Next() {
		var rec models.AddressRecord
		if errScan := rows.Scan(&rec.Address, &rec.Longitude, &rec.Latitude); errScan != nil {
			return models.OutputSet{}, fmt.Errorf("failed to scan geocoded address: %w", errScan)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return models.OutputSet{}, fmt.Errorf("failed to read row: %w", err)
	}

	s.log.DebugContext(ctx, "Geocoded addresses loaded", "rows", len(records))

	return models.OutputSet{Records: records, Found: true}, nil
}

// Save stores records in one transaction. Addresses already in the table are left
// untouched, so saving the merged set only appends the new rows.
func (s *PostgresStore) Save(ctx context.Context, records []models.AddressRecord) error {
	query := `
		INSERT INTO geocoded_addresses (address, longitude, latitude)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING;
	`

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	inserted := int64(0)
	for _, rec := range records {
		tag, errExec := tx.Exec(ctx, query, rec.Address, rec.Longitude, rec.Latitude)
		if errExec != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to insert geocoded address: %w", errExec)
		}
		inserted += tag.RowsAffected()
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit geocoded addresses: %w", err)
	}

	s.log.DebugContext(ctx, "Geocoded addresses saved", "rows", len(records), "inserted", inserted)

	return nil
}
