// Package postgres records parking transactions in an append-only table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

const schema = `
CREATE TABLE IF NOT EXISTS parking_transactions (
	id               BIGSERIAL PRIMARY KEY,
	spot_index       INTEGER NOT NULL,
	plate            TEXT NOT NULL,
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 0),
	fee_minor        BIGINT NOT NULL CHECK (fee_minor >= 0),
	exit_time        TIMESTAMPTZ NOT NULL,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	db   Querier
	pool *pgxpool.Pool
}

// Open connects to databaseURL, traces queries and ensures the table exists.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, wrapIO(err)
	}

	dbName := "parking"
	if config.ConnConfig.Database != "" {
		dbName = config.ConnConfig.Database
	}
	config.ConnConfig.Tracer = otelpgx.NewTracer(
		otelpgx.WithTrimSQLInSpanName(),
		otelpgx.WithDisableQuerySpanNamePrefix(),
		otelpgx.WithSpanNameFunc(func(stmt string) string {
			fields := strings.Fields(stmt)
			if len(fields) == 0 {
				return dbName
			}
			return dbName + " " + strings.ToUpper(fields[0])
		}),
	)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, wrapIO(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapIO(err)
	}

	s := &Store{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection or transaction.
func New(db Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return wrapIO(err)
}

func (s *Store) Append(ctx context.Context, tx parking.Transaction) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO parking_transactions (spot_index, plate, duration_minutes, fee_minor, exit_time)
		VALUES ($1, $2, $3, $4, $5)`,
		tx.SpotIndex, tx.Plate, tx.DurationMinutes, int64(tx.Fee), tx.ExitTime,
	)
	return wrapIO(err)
}

func (s *Store) Transactions(ctx context.Context) ([]parking.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT spot_index, plate, duration_minutes, fee_minor, exit_time
		FROM parking_transactions
		ORDER BY id`)
	if err != nil {
		return nil, wrapIO(err)
	}
	defer rows.Close()

	var txs []parking.Transaction
	for rows.Next() {
		var (
			tx  parking.Transaction
			fee int64
		)
		if err := rows.Scan(&tx.SpotIndex, &tx.Plate, &tx.DurationMinutes, &fee, &tx.ExitTime); err != nil {
			return nil, wrapIO(err)
		}
		tx.Fee = parking.Money(fee)
		txs = append(txs, tx)
	}
	return txs, wrapIO(rows.Err())
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func wrapIO(err error) error {
	if err == nil || errors.Is(err, parking.ErrIOFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", parking.ErrIOFailure, err)
}
