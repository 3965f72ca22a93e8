package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/record"
)

const (
	couponColumns = `id, type, code, name, description, details, threshold, discount_value,
		active, expires_at, created_at, updated_at`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE active ORDER BY created_at, id`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at, id`

	getCouponSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	insertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING ` + couponColumns

	updateCouponSQL = `UPDATE coupons SET type = $2, code = $3, name = $4, description = $5,
		details = $6, threshold = $7, discount_value = $8, active = $9, expires_at = $10,
		updated_at = $11
		WHERE id = $1
		RETURNING ` + couponColumns

	upsertCouponSQL = `INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (code) DO UPDATE SET type = EXCLUDED.type, name = EXCLUDED.name,
			description = EXCLUDED.description, details = EXCLUDED.details,
			threshold = EXCLUDED.threshold, discount_value = EXCLUDED.discount_value,
			active = EXCLUDED.active, expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	uniqueViolation = "23505"
)

var _ coupon.Catalog = (*CouponRepository)(nil)

// CouponRepository stores coupons in PostgreSQL. It serves as the evaluation
// catalog and backs the admin API.
type CouponRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool, now: time.Now}
}

// Active returns every active coupon in creation order. Expired coupons are
// included; the caller checks expiry against its own clock.
func (r *CouponRepository) Active(ctx context.Context) ([]*coupon.Coupon, error) {
	return r.query(ctx, "listing active coupons", listActiveCouponsSQL)
}

// List returns all coupons in creation order.
func (r *CouponRepository) List(ctx context.Context) ([]*coupon.Coupon, error) {
	return r.query(ctx, "listing coupons", listCouponsSQL)
}

// Get returns the coupon with the given id, active or not.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) Get(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %s: %w", id, err)
	}
	return collectOne(rows, id)
}

// Create inserts a new coupon. A nil id is replaced with a random one.
// Returns coupon.ErrDuplicateCode when the code is taken.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	rec := record.FromCoupon(c)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	args, err := writeArgs(rec, r.now())
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, insertCouponSQL, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, coupon.ErrDuplicateCode
		}
		return nil, fmt.Errorf("creating coupon %q: %w", rec.Code, err)
	}
	return collectOne(rows, rec.ID)
}

// Update replaces the coupon stored under id. Returns coupon.ErrNotFound for
// an unknown id and coupon.ErrDuplicateCode when the new code is taken.
func (r *CouponRepository) Update(ctx context.Context, id uuid.UUID, c *coupon.Coupon) (*coupon.Coupon, error) {
	rec := record.FromCoupon(c)
	rec.ID = id
	args, err := writeArgs(rec, r.now())
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, updateCouponSQL, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, coupon.ErrDuplicateCode
		}
		return nil, fmt.Errorf("updating coupon %s: %w", id, err)
	}
	return collectOne(rows, id)
}

// Upsert inserts the coupon or replaces the one with the same code. The id of
// an existing coupon is kept.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	rec := record.FromCoupon(c)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	args, err := writeArgs(rec, r.now())
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, upsertCouponSQL, args...); err != nil {
		return fmt.Errorf("upserting coupon %q: %w", rec.Code, err)
	}
	return nil
}

// Delete removes the coupon. Returns coupon.ErrNotFound for an unknown id.
func (r *CouponRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) query(ctx context.Context, op, sql string) ([]*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return coupons, nil
}

func collectOne(rows pgx.Rows, id uuid.UUID) (*coupon.Coupon, error) {
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, coupon.ErrNotFound
	case isUniqueViolation(err):
		return nil, coupon.ErrDuplicateCode
	default:
		return nil, fmt.Errorf("coupon %s: %w", id, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// writeArgs lays out the record in couponColumns order, minus updated_at which
// reuses the created_at parameter.
func writeArgs(rec record.Record, now time.Time) ([]any, error) {
	details, err := rec.MarshalDetails()
	if err != nil {
		return nil, err
	}
	threshold, value := amounts(rec)
	return []any{
		rec.ID, rec.Type, rec.Code, rec.Name, rec.Description,
		string(details), threshold, value,
		rec.Active, rec.ExpiresAt, now,
	}, nil
}

// amounts extracts the monetary fields stored in their own NUMERIC columns.
func amounts(rec record.Record) (threshold, value decimal.NullDecimal) {
	switch {
	case rec.CartWise != nil:
		threshold = decimal.NewNullDecimal(rec.CartWise.Threshold)
		value = decimal.NewNullDecimal(rec.CartWise.DiscountValue)
	case rec.ProductWise != nil:
		value = decimal.NewNullDecimal(rec.ProductWise.DiscountValue)
	}
	return threshold, value
}

func scanCoupon(row pgx.CollectableRow) (*coupon.Coupon, error) {
	var (
		rec       record.Record
		details   []byte
		threshold decimal.NullDecimal
		value     decimal.NullDecimal
	)
	if err := row.Scan(
		&rec.ID, &rec.Type, &rec.Code, &rec.Name, &rec.Description,
		&details, &threshold, &value,
		&rec.Active, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := rec.UnmarshalDetails(details); err != nil {
		return nil, fmt.Errorf("decoding details of coupon %s: %w", rec.ID, err)
	}

	switch {
	case rec.CartWise != nil:
		rec.CartWise.Threshold = threshold.Decimal
		rec.CartWise.DiscountValue = value.Decimal
	case rec.ProductWise != nil:
		rec.ProductWise.DiscountValue = value.Decimal
	}

	c, err := rec.Coupon()
	if err != nil {
		return nil, fmt.Errorf("loading coupon %s: %w", rec.ID, err)
	}
	return c, nil
}
