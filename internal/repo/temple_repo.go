package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ShivpalBellway/DevBhakti/internal/model"
)

const templeColumns = `id, account_id, code, name, category, location, full_address, description,
	history, open_time, phone, website, map_url, viewers, image, hero_images, rating,
	reviews_count, live_status, created_at, updated_at`

// TemplePatch updates only the non-nil fields. HeroImages replaces the whole list when set.
type TemplePatch struct {
	Name         *string
	Category     *string
	Location     *string
	FullAddress  *string
	Description  *string
	History      *string
	OpenTime     *string
	Phone        *string
	Website      *string
	MapURL       *string
	Viewers      *string
	Image        *string
	HeroImages   *[]string
	Rating       *float64
	ReviewsCount *int
	LiveStatus   *bool
}

// TempleRepo defines the interface for temple repository operations
type TempleRepo interface {
	Create(ctx context.Context, t *model.Temple) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Temple, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (model.Temple, error)
	Patch(ctx context.Context, id uuid.UUID, patch TemplePatch) (model.Temple, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListLive(ctx context.Context) ([]model.Temple, error)
	ListByAccountIDs(ctx context.Context, accountIDs []uuid.UUID) ([]model.Temple, error)
}

type templeRepo struct {
	q Querier
}

// NewTempleRepo creates a new TempleRepo instance
func NewTempleRepo(q Querier) TempleRepo {
	return &templeRepo{q: q}
}

// Create inserts t and fills in its generated id and timestamps.
func (r *templeRepo) Create(ctx context.Context, t *model.Temple) error {
	if t.HeroImages == nil {
		t.HeroImages = pq.StringArray{}
	}
	query := `
		INSERT INTO temples (account_id, code, name, category, location, full_address, description,
			history, open_time, phone, website, map_url, viewers, image, hero_images, rating,
			reviews_count, live_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRowxContext(ctx, query,
		t.AccountID, t.Code, t.Name, t.Category, t.Location, t.FullAddress, t.Description,
		t.History, t.OpenTime, t.Phone, t.Website, t.MapURL, t.Viewers, t.Image, t.HeroImages,
		t.Rating, t.ReviewsCount, t.LiveStatus,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert temple: %w", err)
	}
	return nil
}

// GetByID retrieves a temple by ID
func (r *templeRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Temple, error) {
	return r.getOne(ctx, `SELECT `+templeColumns+` FROM temples WHERE id = $1`, id)
}

// GetByAccountID retrieves the temple owned by an account
func (r *templeRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (model.Temple, error) {
	return r.getOne(ctx, `SELECT `+templeColumns+` FROM temples WHERE account_id = $1`, accountID)
}

func (r *templeRepo) getOne(ctx context.Context, query string, arg any) (model.Temple, error) {
	var t model.Temple
	if err := r.q.QueryRowxContext(ctx, query, arg).StructScan(&t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Temple{}, fmt.Errorf("temple not found: %w", err)
		}
		return model.Temple{}, fmt.Errorf("failed to query temple: %w", err)
	}
	return t, nil
}

// Patch updates the provided fields of a temple
func (r *templeRepo) Patch(ctx context.Context, id uuid.UUID, p TemplePatch) (model.Temple, error) {
	var heroImages any
	if p.HeroImages != nil {
		heroImages = pq.StringArray(*p.HeroImages)
	}

	query := `
		UPDATE temples
		SET name = COALESCE($2, name),
		    category = COALESCE($3, category),
		    location = COALESCE($4, location),
		    full_address = COALESCE($5, full_address),
		    description = COALESCE($6, description),
		    history = COALESCE($7, history),
		    open_time = COALESCE($8, open_time),
		    phone = COALESCE($9, phone),
		    website = COALESCE($10, website),
		    map_url = COALESCE($11, map_url),
		    viewers = COALESCE($12, viewers),
		    image = COALESCE($13, image),
		    hero_images = COALESCE($14, hero_images),
		    rating = COALESCE($15, rating),
		    reviews_count = COALESCE($16, reviews_count),
		    live_status = COALESCE($17, live_status),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + templeColumns

	var t model.Temple
	err := r.q.QueryRowxContext(ctx, query, id,
		p.Name, p.Category, p.Location, p.FullAddress, p.Description, p.History, p.OpenTime,
		p.Phone, p.Website, p.MapURL, p.Viewers, p.Image, heroImages, p.Rating, p.ReviewsCount,
		p.LiveStatus,
	).StructScan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Temple{}, fmt.Errorf("temple not found: %w", err)
		}
		return model.Temple{}, fmt.Errorf("failed to update temple: %w", err)
	}
	return t, nil
}

// Delete removes the temple row. Poojas still referencing it make this fail with a
// foreign-key violation.
func (r *templeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM temples WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete temple: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("temple not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ListLive returns published temples, highest rated first.
func (r *templeRepo) ListLive(ctx context.Context) ([]model.Temple, error) {
	temples := []model.Temple{}
	err := sqlx.SelectContext(ctx, r.q, &temples, `
		SELECT `+templeColumns+` FROM temples
		WHERE live_status = true
		ORDER BY rating DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list live temples: %w", err)
	}
	return temples, nil
}

// ListByAccountIDs returns the temples owned by any of the given accounts.
func (r *templeRepo) ListByAccountIDs(ctx context.Context, accountIDs []uuid.UUID) ([]model.Temple, error) {
	temples := []model.Temple{}
	if len(accountIDs) == 0 {
		return temples, nil
	}
	err := sqlx.SelectContext(ctx, r.q, &temples, `
		SELECT `+templeColumns+` FROM temples
		WHERE account_id = ANY($1::uuid[])`, pq.Array(uuidStrings(accountIDs)))
	if err != nil {
		return nil, fmt.Errorf("list temples by account: %w", err)
	}
	return temples, nil
}
