//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// BatchFixture lists the batch columns tests usually vary; zero values get defaults.
type BatchFixture struct {
	CenterID         uuid.UUID
	Name             string
	Capacity         int
	MinAge           int
	MaxAge           int
	Genders          []string
	AllowDisabled    bool
	RequiresApproval bool
	FeeAmount        int64
	Currency         string
}

func CreateCenter(t *testing.T, db Execer, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(), "INSERT INTO centers (id, name) VALUES ($1, $2)", id, name)
	require.NoError(t, err)
	return id
}

func GrantCenterStaff(t *testing.T, db Execer, centerID, userID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		"INSERT INTO center_staff (center_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		centerID, userID)
	require.NoError(t, err)
}

// CreateBatch inserts a published, active batch running for the next month.
func CreateBatch(t *testing.T, db Execer, f BatchFixture) uuid.UUID {
	t.Helper()

	if f.Name == "" {
		f.Name = "Morning Football"
	}
	if f.Currency == "" {
		f.Currency = "INR"
	}
	if f.Genders == nil {
		f.Genders = []string{}
	}

	id := uuid.New()
	start := time.Now().UTC().Truncate(time.Second)
	_, err := db.Exec(context.Background(), `
		INSERT INTO batches (id, center_id, sport_id, name, capacity, min_age, max_age, genders,
		                     allow_disabled, start_date, end_date, status, is_active,
		                     requires_approval, fee_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'published', true, $12, $13, $14)`,
		id, f.CenterID, uuid.New(), f.Name, f.Capacity, f.MinAge, f.MaxAge, f.Genders,
		f.AllowDisabled, start, start.AddDate(0, 1, 0), f.RequiresApproval, f.FeeAmount, f.Currency)
	require.NoError(t, err)
	return id
}

func CreateParticipant(t *testing.T, db Execer, userID uuid.UUID, dob time.Time, gender string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO participants (id, user_id, name, date_of_birth, gender) VALUES ($1, $2, $3, $4, $5)",
		id, userID, "Participant "+id.String()[:8], dob, gender)
	require.NoError(t, err)
	return id
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	_, err := pool.Exec(ctx, sqlAny.(string))
	return err
}
