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

const poojaColumns = `id, temple_id, name, category, price, duration, description,
	packages, process_steps, faqs, created_at, updated_at`

// PoojaRepo defines the interface for pooja repository operations
type PoojaRepo interface {
	Create(ctx context.Context, p *model.Pooja) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Pooja, error)
	ListByTemple(ctx context.Context, templeID uuid.UUID) ([]model.Pooja, error)
	Reassign(ctx context.Context, templeID uuid.UUID, poojaIDs []uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SummariesByTemples(ctx context.Context, templeIDs []uuid.UUID) ([]model.PoojaSummary, error)
}

type poojaRepo struct {
	q Querier
}

// NewPoojaRepo creates a new PoojaRepo instance
func NewPoojaRepo(q Querier) PoojaRepo {
	return &poojaRepo{q: q}
}

// Create inserts p and fills in its generated id and timestamps.
func (r *poojaRepo) Create(ctx context.Context, p *model.Pooja) error {
	query := `
		INSERT INTO poojas (temple_id, name, category, price, duration, description,
			packages, process_steps, faqs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRowxContext(ctx, query,
		p.TempleID, p.Name, p.Category, p.Price, p.Duration, p.Description,
		p.Packages, p.ProcessSteps, p.FAQs,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pooja: %w", err)
	}
	return nil
}

// GetByID retrieves a pooja by ID
func (r *poojaRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Pooja, error) {
	var p model.Pooja
	err := r.q.QueryRowxContext(ctx, `SELECT `+poojaColumns+` FROM poojas WHERE id = $1`, id).StructScan(&p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Pooja{}, fmt.Errorf("pooja not found: %w", err)
		}
		return model.Pooja{}, fmt.Errorf("failed to query pooja: %w", err)
	}
	return p, nil
}

// ListByTemple returns a temple's poojas ordered by name.
func (r *poojaRepo) ListByTemple(ctx context.Context, templeID uuid.UUID) ([]model.Pooja, error) {
	poojas := []model.Pooja{}
	err := sqlx.SelectContext(ctx, r.q, &poojas,
		`SELECT `+poojaColumns+` FROM poojas WHERE temple_id = $1 ORDER BY name`, templeID)
	if err != nil {
		return nil, fmt.Errorf("list poojas: %w", err)
	}
	return poojas, nil
}

// Reassign points every listed pooja at templeID, whichever temple owned it before.
// Unknown ids are ignored; the number of moved rows is returned.
func (r *poojaRepo) Reassign(ctx context.Context, templeID uuid.UUID, poojaIDs []uuid.UUID) (int64, error) {
	if len(poojaIDs) == 0 {
		return 0, nil
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE poojas SET temple_id = $1, updated_at = now()
		WHERE id = ANY($2::uuid[])
	`, templeID, pq.Array(uuidStrings(poojaIDs)))
	if err != nil {
		return 0, fmt.Errorf("reassign poojas: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Delete removes a pooja
func (r *poojaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM poojas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pooja: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("pooja not found: %w", sql.ErrNoRows)
	}
	return nil
}

// SummariesByTemples returns the short form of all poojas of the given temples.
func (r *poojaRepo) SummariesByTemples(ctx context.Context, templeIDs []uuid.UUID) ([]model.PoojaSummary, error) {
	out := []model.PoojaSummary{}
	if len(templeIDs) == 0 {
		return out, nil
	}
	err := sqlx.SelectContext(ctx, r.q, &out, `
		SELECT id, temple_id, name, category, price, duration
		FROM poojas
		WHERE temple_id = ANY($1::uuid[])
		ORDER BY name`, pq.Array(uuidStrings(templeIDs)))
	if err != nil {
		return nil, fmt.Errorf("list pooja summaries: %w", err)
	}
	return out, nil
}
