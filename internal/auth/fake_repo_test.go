package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
)

// memAccounts is an in-memory AccountRepo keyed by phone.
type memAccounts struct {
	mu      sync.Mutex
	byPhone map[string]*model.Account
	now     func() time.Time
}

func newMemAccounts(now func() time.Time) *memAccounts {
	return &memAccounts{byPhone: map[string]*model.Account{}, now: now}
}

func (m *memAccounts) find(id uuid.UUID) *model.Account {
	for _, a := range m.byPhone {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a := m.find(id); a != nil {
		return *a, nil
	}
	return model.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (m *memAccounts) GetByPhone(_ context.Context, phone string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byPhone[phone]; ok {
		return *a, nil
	}
	return model.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
}

func (m *memAccounts) UpsertOTP(_ context.Context, phone, name string, email *string, otp string, expiresAt time.Time) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byPhone[phone]
	if !ok {
		a = &model.Account{
			ID:        uuid.New(),
			Phone:     phone,
			Name:      name,
			Email:     email,
			Role:      model.RoleDevotee,
			CreatedAt: m.now(),
		}
		m.byPhone[phone] = a
	}
	code := otp
	exp := expiresAt
	a.OTP = &code
	a.OTPExpiresAt = &exp
	return *a, nil
}

func (m *memAccounts) ConsumeOTP(_ context.Context, id uuid.UUID, otp string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(id)
	if a == nil || a.OTP == nil || *a.OTP != otp {
		return model.Account{}, repo.ErrOTPNotConsumed
	}
	if a.Role == model.RoleDevotee {
		a.IsVerified = true
	}
	a.OTP = nil
	a.OTPExpiresAt = nil
	return *a, nil
}

func (m *memAccounts) Create(_ context.Context, in repo.NewAccount) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPhone[in.Phone]; ok {
		return model.Account{}, fmt.Errorf("duplicate phone %s", in.Phone)
	}
	a := &model.Account{
		ID:           uuid.New(),
		Phone:        in.Phone,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		IsVerified:   in.IsVerified,
		CreatedAt:    m.now(),
	}
	m.byPhone[in.Phone] = a
	return *a, nil
}

func (m *memAccounts) Patch(_ context.Context, id uuid.UUID, p repo.AccountPatch) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(id)
	if a == nil {
		return model.Account{}, fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Email != nil {
		a.Email = p.Email
	}
	if p.ProfileImage != nil {
		a.ProfileImage = p.ProfileImage
	}
	return *a, nil
}

func (m *memAccounts) SetVerified(_ context.Context, id uuid.UUID, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(id)
	if a == nil {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	a.IsVerified = verified
	return nil
}

func (m *memAccounts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.find(id)
	if a == nil {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	delete(m.byPhone, a.Phone)
	return nil
}

func (m *memAccounts) ClearExpiredOTPs(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.byPhone {
		if a.OTPExpiresAt != nil && a.OTPExpiresAt.Before(now) {
			a.OTP, a.OTPExpiresAt = nil, nil
			n++
		}
	}
	return n, nil
}

func (m *memAccounts) ListInstitutions(context.Context) ([]model.Account, error) {
	return nil, nil
}

// recordingNotifier remembers the last dispatched code.
type recordingNotifier struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (n *recordingNotifier) SendCode(_ context.Context, phone, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[phone] = code
	return nil
}

func (n *recordingNotifier) last(phone string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.codes[phone]
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
