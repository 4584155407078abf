// Package onboarding creates, updates and removes institutions together with their temple,
// linked poojas and inline events, always inside one database transaction.
package onboarding

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/logging"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/validate"
)

const (
	defaultTempleName     = "New Temple"
	defaultTempleCategory = "Sacred"
	templeCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	templeCodeLength      = 6
)

// Service runs the onboarding transactions
type Service struct {
	store           *repo.Store
	logger          *zap.Logger
	metrics         *metrics.Metrics
	defaultPassword string
	newCode         func() (string, error)
}

// NewService creates an onboarding service. defaultPassword is used for institutions
// onboarded without one.
func NewService(store *repo.Store, logger *zap.Logger, m *metrics.Metrics, defaultPassword string) *Service {
	return &Service{
		store:           store,
		logger:          logger,
		metrics:         m,
		defaultPassword: defaultPassword,
		newCode:         newTempleCode,
	}
}

// CreateInstitution creates the account, its temple, reassigns the listed poojas to the
// temple and inserts the inline events. autoVerify marks the account approved; when false
// the temple is also kept unpublished.
func (s *Service) CreateInstitution(ctx context.Context, in CreateInstitutionInput, autoVerify bool) (inst Institution, err error) {
	defer func() { s.metrics.RecordOnboarding("create", err) }()

	if err := in.Validate(); err != nil {
		return Institution{}, err
	}
	phone, err := auth.NormalizePhone(in.Phone)
	if err != nil {
		return Institution{}, err
	}

	password := in.Password
	if password == "" {
		password = s.defaultPassword
		s.logger.Warn("institution onboarded with default password", logging.Phone(phone))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Institution{}, apperr.Internal(err)
	}
	code, err := s.newCode()
	if err != nil {
		return Institution{}, apperr.Internal(err)
	}

	temple := newTemple(in, phone, code, autoVerify)

	err = s.store.InTx(ctx, func(tx repo.Repos) error {
		acc, err := tx.Accounts.Create(ctx, repo.NewAccount{
			Phone:        phone,
			Name:         strings.TrimSpace(in.Name),
			Email:        in.Email,
			PasswordHash: &hash,
			Role:         model.RoleInstitution,
			IsVerified:   autoVerify,
		})
		if err != nil {
			return err
		}

		temple.AccountID = acc.ID
		if err := tx.Temples.Create(ctx, &temple); err != nil {
			return err
		}
		if _, err := tx.Poojas.Reassign(ctx, temple.ID, in.PoojaIDs); err != nil {
			return err
		}
		if err := tx.Events.CreateMany(ctx, temple.ID, toNewEvents(in.InlineEvents)); err != nil {
			return err
		}

		inst = Institution{Account: acc.Public(), Temple: &temple}
		return nil
	})
	if err != nil {
		return Institution{}, apperr.FromDB(err, "Institution not found")
	}

	s.logger.Info("institution created",
		zap.String("account_id", inst.Account.ID.String()),
		zap.String("temple_code", temple.Code),
		zap.Bool("auto_verify", autoVerify),
		zap.Int("poojas", len(in.PoojaIDs)),
		zap.Int("events", len(in.InlineEvents)),
	)
	return inst, nil
}

func newTemple(in CreateInstitutionInput, phone, code string, autoVerify bool) model.Temple {
	t := model.Temple{
		Code:       code,
		Name:       defaultTempleName,
		Category:   defaultTempleCategory,
		Phone:      phone,
		Website:    in.Temple.Website,
		MapURL:     in.Temple.MapURL,
		Viewers:    in.Temple.Viewers,
		Image:      in.Image,
		HeroImages: append([]string{}, in.HeroImages...),
	}
	f := in.Temple
	setString(&t.Name, f.Name)
	setString(&t.Category, f.Category)
	setString(&t.Location, f.Location)
	setString(&t.FullAddress, f.FullAddress)
	setString(&t.Description, f.Description)
	setString(&t.History, f.History)
	setString(&t.OpenTime, f.OpenTime)
	setString(&t.Phone, f.Phone)
	if f.Rating != nil {
		t.Rating = *f.Rating
	}
	if f.ReviewsCount != nil {
		t.ReviewsCount = *f.ReviewsCount
	}
	if autoVerify && f.LiveStatus != nil {
		t.LiveStatus = *f.LiveStatus
	}
	return t
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = *v
	}
}

// UpdateInstitution patches the account and temple, appends uploaded hero images to the
// kept list, reassigns poojas and, when InlineEvents is present, replaces all events.
func (s *Service) UpdateInstitution(ctx context.Context, accountID uuid.UUID, in UpdateInstitutionInput) (inst Institution, err error) {
	defer func() { s.metrics.RecordOnboarding("update", err) }()

	if err := validate.Struct(in); err != nil {
		return Institution{}, err
	}
	if in.InlineEvents != nil {
		for _, ev := range *in.InlineEvents {
			if err := validate.Struct(ev); err != nil {
				return Institution{}, err
			}
		}
	}
	var phone *string
	if in.Phone != nil {
		p, err := auth.NormalizePhone(*in.Phone)
		if err != nil {
			return Institution{}, err
		}
		phone = &p
	}

	err = s.store.InTx(ctx, func(tx repo.Repos) error {
		acc, err := tx.Accounts.Patch(ctx, accountID, repo.AccountPatch{
			Name:  in.Name,
			Email: in.Email,
			Phone: phone,
		})
		if err != nil {
			return err
		}

		current, err := tx.Temples.GetByAccountID(ctx, accountID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("Temple not found")
			}
			return err
		}

		patch := in.Temple.patch()
		patch.Image = in.Image
		if in.ExistingHeroImages != nil || len(in.NewHeroImages) > 0 {
			kept := []string(current.HeroImages)
			if in.ExistingHeroImages != nil {
				kept = *in.ExistingHeroImages
			}
			heroes := append(append([]string{}, kept...), in.NewHeroImages...)
			patch.HeroImages = &heroes
		}

		temple, err := tx.Temples.Patch(ctx, current.ID, patch)
		if err != nil {
			return err
		}
		if _, err := tx.Poojas.Reassign(ctx, temple.ID, in.PoojaIDs); err != nil {
			return err
		}
		if in.InlineEvents != nil {
			if _, err := tx.Events.DeleteByTemple(ctx, temple.ID); err != nil {
				return err
			}
			if err := tx.Events.CreateMany(ctx, temple.ID, toNewEvents(*in.InlineEvents)); err != nil {
				return err
			}
		}

		inst = Institution{Account: acc.Public(), Temple: &temple}
		return nil
	})
	if err != nil {
		return Institution{}, apperr.FromDB(err, "Institution not found")
	}
	return inst, nil
}

// DeleteInstitution removes the temple and then the account. Poojas still owned by the
// temple block the delete with a conflict.
func (s *Service) DeleteInstitution(ctx context.Context, accountID uuid.UUID) (err error) {
	defer func() { s.metrics.RecordOnboarding("delete", err) }()

	err = s.store.InTx(ctx, func(tx repo.Repos) error {
		if _, err := institutionAccount(ctx, tx, accountID); err != nil {
			return err
		}
		temple, err := tx.Temples.GetByAccountID(ctx, accountID)
		switch {
		case err == nil:
			if err := tx.Temples.Delete(ctx, temple.ID); err != nil {
				return err
			}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		return tx.Accounts.Delete(ctx, accountID)
	})
	if err != nil {
		return apperr.FromDB(err, "Temple account not found")
	}
	s.logger.Info("institution deleted", zap.String("account_id", accountID.String()))
	return nil
}

// institutionAccount loads an account and rejects it unless it has the institution role.
func institutionAccount(ctx context.Context, tx repo.Repos, accountID uuid.UUID) (model.Account, error) {
	acc, err := tx.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	if acc.Role != model.RoleInstitution {
		return model.Account{}, apperr.NotFound("Institution not found")
	}
	return acc, nil
}

// ToggleTempleStatus sets the account's verification flag and the temple's publication flag
// in one transaction. Either may be omitted.
func (s *Service) ToggleTempleStatus(ctx context.Context, accountID uuid.UUID, in StatusInput) (inst Institution, err error) {
	defer func() { s.metrics.RecordOnboarding("status", err) }()

	if in.IsVerified == nil && in.LiveStatus == nil {
		return Institution{}, apperr.Validation("isVerified or liveStatus is required")
	}

	err = s.store.InTx(ctx, func(tx repo.Repos) error {
		acc, err := institutionAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if in.IsVerified != nil {
			if err := tx.Accounts.SetVerified(ctx, accountID, *in.IsVerified); err != nil {
				return err
			}
			acc.IsVerified = *in.IsVerified
		}
		inst.Account = acc.Public()

		temple, err := tx.Temples.GetByAccountID(ctx, accountID)
		if errors.Is(err, sql.ErrNoRows) {
			if in.LiveStatus != nil {
				return apperr.NotFound("Temple not found")
			}
			return nil
		}
		if err != nil {
			return err
		}
		if in.LiveStatus != nil {
			temple, err = tx.Temples.Patch(ctx, temple.ID, repo.TemplePatch{LiveStatus: in.LiveStatus})
			if err != nil {
				return err
			}
		}
		inst.Temple = &temple
		return nil
	})
	if err != nil {
		return Institution{}, apperr.FromDB(err, "Institution not found")
	}
	return inst, nil
}

// ListInstitutions returns every institution account, newest first, with its temple,
// pooja summaries and events.
func (s *Service) ListInstitutions(ctx context.Context) ([]InstitutionView, error) {
	accounts, err := s.store.Accounts.ListInstitutions(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Institution not found")
	}

	ids := make([]uuid.UUID, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	temples, err := s.store.Temples.ListByAccountIDs(ctx, ids)
	if err != nil {
		return nil, apperr.FromDB(err, "Institution not found")
	}

	templeIDs := make([]uuid.UUID, len(temples))
	details := make(map[uuid.UUID]*TempleDetail, len(temples))
	byAccount := make(map[uuid.UUID]*TempleDetail, len(temples))
	for i, t := range temples {
		templeIDs[i] = t.ID
		d := &TempleDetail{Temple: t, Poojas: []model.PoojaSummary{}, Events: []model.Event{}}
		details[t.ID] = d
		byAccount[t.AccountID] = d
	}

	poojas, err := s.store.Poojas.SummariesByTemples(ctx, templeIDs)
	if err != nil {
		return nil, apperr.FromDB(err, "Institution not found")
	}
	for _, p := range poojas {
		if d, ok := details[p.TempleID]; ok {
			d.Poojas = append(d.Poojas, p)
		}
	}
	events, err := s.store.Events.ListByTemples(ctx, templeIDs)
	if err != nil {
		return nil, apperr.FromDB(err, "Institution not found")
	}
	for _, ev := range events {
		if d, ok := details[ev.TempleID]; ok {
			d.Events = append(d.Events, ev)
		}
	}

	out := make([]InstitutionView, len(accounts))
	for i, a := range accounts {
		v := InstitutionView{PublicAccount: a.Public()}
		if d, ok := byAccount[a.ID]; ok {
			d.Count = TempleCounts{Poojas: len(d.Poojas), Events: len(d.Events)}
			v.Temple = d
		}
		out[i] = v
	}
	return out, nil
}

// GetMyTemple returns the temple owned by accountID with the owner's contact details.
func (s *Service) GetMyTemple(ctx context.Context, accountID uuid.UUID) (MyTemple, error) {
	temple, err := s.store.Temples.GetByAccountID(ctx, accountID)
	if err != nil {
		return MyTemple{}, apperr.FromDB(err, "Temple not found")
	}
	acc, err := s.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return MyTemple{}, apperr.FromDB(err, "User not found")
	}
	return MyTemple{Temple: temple, User: Owner{Name: acc.Name, Phone: acc.Phone, Email: acc.Email}}, nil
}

// UpdateMyTemple patches the owner's temple profile. Publication, rating and review count
// stay admin controlled. New hero uploads replace the whole hero list.
func (s *Service) UpdateMyTemple(ctx context.Context, accountID uuid.UUID, in MyTempleUpdate) (model.Temple, error) {
	if err := validate.Struct(in); err != nil {
		return model.Temple{}, err
	}
	temple, err := s.store.Temples.GetByAccountID(ctx, accountID)
	if err != nil {
		return model.Temple{}, apperr.FromDB(err, "Temple not found")
	}

	patch := in.Temple.patch()
	patch.LiveStatus = nil
	patch.Rating = nil
	patch.ReviewsCount = nil
	patch.Image = in.Image
	if len(in.HeroImages) > 0 {
		heroes := append([]string{}, in.HeroImages...)
		patch.HeroImages = &heroes
	}

	updated, err := s.store.Temples.Patch(ctx, temple.ID, patch)
	if err != nil {
		return model.Temple{}, apperr.FromDB(err, "Temple not found")
	}
	return updated, nil
}

func newTempleCode() (string, error) {
	var b strings.Builder
	b.WriteString("TMP-")
	span := big.NewInt(int64(len(templeCodeAlphabet)))
	for i := 0; i < templeCodeLength; i++ {
		n, err := rand.Int(rand.Reader, span)
		if err != nil {
			return "", fmt.Errorf("generate temple code: %w", err)
		}
		b.WriteByte(templeCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
