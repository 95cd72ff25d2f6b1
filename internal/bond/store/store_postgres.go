package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	"veritasor/pkg/platform/sentinel"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres persists bond state in PostgreSQL via pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a store to the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate applies embedded migrations in lexicographic order, tracking them
// in a schema_migrations table.
func (s *Postgres) Migrate(ctx context.Context) error {
	const createTracker = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := s.pool.Exec(ctx, createTracker); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var applied bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`,
			entry.Name(),
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if applied {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if err := s.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, entry.Name())
			return err
		}); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Postgres) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) SetAdmin(ctx context.Context, admin domain.Identity) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO bond_admin (singleton, admin) VALUES (0, $1)
		ON CONFLICT (singleton) DO NOTHING`,
		admin.String(),
	)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("admin already registered: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *Postgres) GetAdmin(ctx context.Context) (domain.Identity, error) {
	var admin string
	err := s.pool.QueryRow(ctx, `SELECT admin FROM bond_admin WHERE singleton = 0`).Scan(&admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get admin: %w", err)
	}
	return domain.Identity(admin), nil
}

func (s *Postgres) CreateBond(ctx context.Context, bond *models.Bond, owner domain.Identity) (domain.BondID, error) {
	var id int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		// Claim the next identifier inside the transaction: a rollback
		// releases it, so failed attempts never consume an ID.
		if err := tx.QueryRow(ctx, `
			UPDATE bond_counter SET next_bond_id = next_bond_id + 1
			WHERE singleton = 0
			RETURNING next_bond_id - 1`,
		).Scan(&id); err != nil {
			return fmt.Errorf("allocate bond id: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO bonds (id, issuer, face_value, structure, revenue_share_bps,
				min_payment, max_payment, maturity_periods, attestation_source,
				token, status, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id, bond.Issuer.String(), bond.FaceValue, string(bond.Structure), int32(bond.RevenueShareBps),
			bond.MinPayment, bond.MaxPayment, int32(bond.MaturityPeriods), bond.AttestationSource,
			bond.Token.String(), string(bond.Status), bond.IssuedAt,
		); err != nil {
			return fmt.Errorf("insert bond: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO bond_owners (bond_id, owner) VALUES ($1, $2)`,
			id, owner.String(),
		); err != nil {
			return fmt.Errorf("insert owner: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO bond_totals (bond_id, total_redeemed) VALUES ($1, 0)`,
			id,
		); err != nil {
			return fmt.Errorf("insert total: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	bond.ID = domain.BondID(id)
	return bond.ID, nil
}

func (s *Postgres) GetBond(ctx context.Context, id domain.BondID) (*models.Bond, error) {
	var (
		bond            models.Bond
		issuer          string
		structure       string
		revenueShareBps int32
		maturityPeriods int32
		token           string
		status          string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, issuer, face_value, structure, revenue_share_bps,
			min_payment, max_payment, maturity_periods, attestation_source,
			token, status, issued_at
		FROM bonds WHERE id = $1`,
		int64(id),
	).Scan(
		&bond.ID, &issuer, &bond.FaceValue, &structure, &revenueShareBps,
		&bond.MinPayment, &bond.MaxPayment, &maturityPeriods, &bond.AttestationSource,
		&token, &status, &bond.IssuedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bond %d: %w", id, err)
	}

	bond.Issuer = domain.Identity(issuer)
	bond.Structure = models.BondStructure(structure)
	bond.RevenueShareBps = uint32(revenueShareBps)
	bond.MaturityPeriods = uint32(maturityPeriods)
	bond.Token = domain.Identity(token)
	bond.Status = models.BondStatus(status)
	return &bond, nil
}

func (s *Postgres) GetOwner(ctx context.Context, id domain.BondID) (domain.Identity, error) {
	var owner string
	err := s.pool.QueryRow(ctx, `SELECT owner FROM bond_owners WHERE bond_id = $1`, int64(id)).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get owner for bond %d: %w", id, err)
	}
	return domain.Identity(owner), nil
}

func (s *Postgres) SetOwner(ctx context.Context, id domain.BondID, owner domain.Identity) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bond_owners SET owner = $2 WHERE bond_id = $1`,
		int64(id), owner.String(),
	)
	if err != nil {
		return fmt.Errorf("set owner for bond %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bond %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) GetRedemption(ctx context.Context, id domain.BondID, period string) (*models.RedemptionRecord, error) {
	var rec models.RedemptionRecord
	err := s.pool.QueryRow(ctx, `
		SELECT bond_id, period, attested_revenue, amount, redeemed_at
		FROM redemptions WHERE bond_id = $1 AND period = $2`,
		int64(id), period,
	).Scan(&rec.BondID, &rec.Period, &rec.AttestedRevenue, &rec.Amount, &rec.RedeemedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption %d/%s: %w", id, period, err)
	}
	return &rec, nil
}

func (s *Postgres) GetTotalRedeemed(ctx context.Context, id domain.BondID) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT total_redeemed FROM bond_totals WHERE bond_id = $1`, int64(id),
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get total redeemed for bond %d: %w", id, err)
	}
	return total, nil
}

func (s *Postgres) ApplyRedemption(ctx context.Context, rec *models.RedemptionRecord, newTotal int64, flip bool) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO redemptions (bond_id, period, attested_revenue, amount, redeemed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			int64(rec.BondID), rec.Period, rec.AttestedRevenue, rec.Amount, rec.RedeemedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			// The primary key on (bond_id, period) is the durable
			// double-spend guard; a concurrent writer loses here even if it
			// passed the existence check.
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("redemption for bond %d period %q: %w", rec.BondID, rec.Period, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert redemption: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE bond_totals SET total_redeemed = $2 WHERE bond_id = $1`,
			int64(rec.BondID), newTotal,
		)
		if err != nil {
			return fmt.Errorf("update total: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("bond %d: %w", rec.BondID, sentinel.ErrNotFound)
		}

		if flip {
			if _, err := tx.Exec(ctx,
				`UPDATE bonds SET status = $2 WHERE id = $1`,
				int64(rec.BondID), string(models.StatusFullyRedeemed),
			); err != nil {
				return fmt.Errorf("flip status: %w", err)
			}
		}
		return nil
	})
}

func (s *Postgres) SetStatus(ctx context.Context, id domain.BondID, status models.BondStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bonds SET status = $2 WHERE id = $1`,
		int64(id), string(status),
	)
	if err != nil {
		return fmt.Errorf("set status for bond %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bond %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}
