// Package catalog serves poojas and the public temple listing.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/validate"
)

// PoojaInput creates a pooja
type PoojaInput struct {
	TempleID     uuid.UUID            `json:"templeId"`
	Name         string               `json:"name" validate:"required,max=200"`
	Category     string               `json:"category" validate:"max=100"`
	Price        decimal.Decimal      `json:"price"`
	Duration     string               `json:"duration" validate:"max=100"`
	Description  string               `json:"description"`
	Packages     []model.PoojaPackage `json:"packages" validate:"dive"`
	ProcessSteps []model.ProcessStep  `json:"processSteps"`
	FAQs         []model.FAQ          `json:"faqs"`
}

// Actor is the authenticated caller of a mutating operation
type Actor struct {
	AccountID uuid.UUID
	Role      model.Role
}

// PoojaDetail is a pooja with the temple offering it
type PoojaDetail struct {
	model.Pooja
	Temple model.Temple `json:"temple"`
}

// Service implements the catalog operations
type Service struct {
	repos  repo.Repos
	logger *zap.Logger
}

// NewService creates a catalog service
func NewService(repos repo.Repos, logger *zap.Logger) *Service {
	return &Service{repos: repos, logger: logger}
}

// CreatePooja adds a pooja. Admins may target any temple; institutions always create on
// their own temple regardless of in.TempleID.
func (s *Service) CreatePooja(ctx context.Context, actor Actor, in PoojaInput) (model.Pooja, error) {
	if err := validate.Struct(in); err != nil {
		return model.Pooja{}, err
	}
	if in.Price.IsNegative() {
		return model.Pooja{}, apperr.Validation("price must not be negative")
	}
	for _, p := range in.Packages {
		if p.Price.IsNegative() {
			return model.Pooja{}, apperr.Validation("package price must not be negative")
		}
	}

	var templeID uuid.UUID
	switch actor.Role {
	case model.RoleAdmin:
		if in.TempleID == uuid.Nil {
			return model.Pooja{}, apperr.Validation("templeId is required")
		}
		if _, err := s.repos.Temples.GetByID(ctx, in.TempleID); err != nil {
			return model.Pooja{}, apperr.FromDB(err, "Temple not found")
		}
		templeID = in.TempleID
	case model.RoleInstitution:
		t, err := s.repos.Temples.GetByAccountID(ctx, actor.AccountID)
		if err != nil {
			return model.Pooja{}, apperr.FromDB(err, "Temple not found")
		}
		templeID = t.ID
	default:
		return model.Pooja{}, apperr.Forbidden("Not allowed to create poojas")
	}

	p := model.Pooja{
		TempleID:     templeID,
		Name:         in.Name,
		Category:     in.Category,
		Price:        in.Price,
		Duration:     in.Duration,
		Description:  in.Description,
		Packages:     in.Packages,
		ProcessSteps: in.ProcessSteps,
		FAQs:         in.FAQs,
	}
	if err := s.repos.Poojas.Create(ctx, &p); err != nil {
		return model.Pooja{}, apperr.FromDB(err, "Temple not found")
	}
	s.logger.Info("pooja created",
		zap.String("pooja_id", p.ID.String()),
		zap.String("temple_id", templeID.String()),
		zap.String("by", string(actor.Role)),
	)
	return p, nil
}

// GetPooja returns a pooja together with its temple
func (s *Service) GetPooja(ctx context.Context, id uuid.UUID) (PoojaDetail, error) {
	p, err := s.repos.Poojas.GetByID(ctx, id)
	if err != nil {
		return PoojaDetail{}, apperr.FromDB(err, "Pooja not found")
	}
	t, err := s.repos.Temples.GetByID(ctx, p.TempleID)
	if err != nil {
		return PoojaDetail{}, apperr.FromDB(err, "Temple not found")
	}
	return PoojaDetail{Pooja: p, Temple: t}, nil
}

// ListTemplePoojas returns the poojas of a temple
func (s *Service) ListTemplePoojas(ctx context.Context, templeID uuid.UUID) ([]model.Pooja, error) {
	if _, err := s.repos.Temples.GetByID(ctx, templeID); err != nil {
		return nil, apperr.FromDB(err, "Temple not found")
	}
	poojas, err := s.repos.Poojas.ListByTemple(ctx, templeID)
	if err != nil {
		return nil, apperr.FromDB(err, "Temple not found")
	}
	return poojas, nil
}

// DeletePooja removes a pooja. Institutions may only delete poojas of their own temple.
func (s *Service) DeletePooja(ctx context.Context, actor Actor, id uuid.UUID) error {
	p, err := s.repos.Poojas.GetByID(ctx, id)
	if err != nil {
		return apperr.FromDB(err, "Pooja not found")
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleInstitution:
		t, err := s.repos.Temples.GetByAccountID(ctx, actor.AccountID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && t.ID != p.TempleID) {
			return apperr.Forbidden("This pooja belongs to another temple")
		}
		if err != nil {
			return apperr.FromDB(err, "Temple not found")
		}
	default:
		return apperr.Forbidden("Not allowed to delete poojas")
	}

	if err := s.repos.Poojas.Delete(ctx, id); err != nil {
		return apperr.FromDB(err, "Pooja not found")
	}
	s.logger.Info("pooja deleted", zap.String("pooja_id", id.String()), zap.String("by", string(actor.Role)))
	return nil
}

// ListLiveTemples returns temples visible to the public
func (s *Service) ListLiveTemples(ctx context.Context) ([]model.Temple, error) {
	temples, err := s.repos.Temples.ListLive(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Temple not found")
	}
	return temples, nil
}
