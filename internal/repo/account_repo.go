package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ShivpalBellway/DevBhakti/internal/model"
)

const accountColumns = `id, phone, name, email, password_hash, role, is_verified,
	otp, otp_expires_at, profile_image, created_at, updated_at`

// ErrOTPNotConsumed is returned by ConsumeOTP when the stored code no longer matches.
var ErrOTPNotConsumed = errors.New("otp not consumed")

// NewAccount holds the fields for inserting an account.
type NewAccount struct {
	Phone        string
	Name         string
	Email        *string
	PasswordHash *string
	Role         model.Role
	IsVerified   bool
}

// AccountPatch updates only the non-nil fields.
type AccountPatch struct {
	Name         *string
	Email        *string
	Phone        *string
	ProfileImage *string
}

// AccountRepo defines the interface for account repository operations
type AccountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
	GetByPhone(ctx context.Context, phone string) (model.Account, error)
	UpsertOTP(ctx context.Context, phone, name string, email *string, otp string, expiresAt time.Time) (model.Account, error)
	ConsumeOTP(ctx context.Context, id uuid.UUID, otp string) (model.Account, error)
	Create(ctx context.Context, in NewAccount) (model.Account, error)
	Patch(ctx context.Context, id uuid.UUID, patch AccountPatch) (model.Account, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
	ListInstitutions(ctx context.Context) ([]model.Account, error)
}

type accountRepo struct {
	q Querier
}

// NewAccountRepo creates a new AccountRepo instance
func NewAccountRepo(q Querier) AccountRepo {
	return &accountRepo{q: q}
}

// GetByID retrieves an account by ID
func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	var acc model.Account
	err := r.q.QueryRowxContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id).StructScan(&acc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account not found: %w", err)
		}
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return acc, nil
}

// GetByPhone retrieves an account by phone number
func (r *accountRepo) GetByPhone(ctx context.Context, phone string) (model.Account, error) {
	var acc model.Account
	err := r.q.QueryRowxContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE phone = $1`, phone).StructScan(&acc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account not found: %w", err)
		}
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	return acc, nil
}

// UpsertOTP stores a fresh OTP for phone. A new devotee account is created when none exists;
// an existing account only has its otp and expiry overwritten. The unique constraint on phone
// turns a racing first insert into the update path.
func (r *accountRepo) UpsertOTP(ctx context.Context, phone, name string, email *string, otp string, expiresAt time.Time) (model.Account, error) {
	query := `
		INSERT INTO accounts (phone, name, email, role, is_verified, otp, otp_expires_at)
		VALUES ($1, $2, $3, 'DEVOTEE', false, $4, $5)
		ON CONFLICT (phone) DO UPDATE
		SET otp = EXCLUDED.otp, otp_expires_at = EXCLUDED.otp_expires_at, updated_at = now()
		RETURNING ` + accountColumns

	var acc model.Account
	err := r.q.QueryRowxContext(ctx, query, phone, name, email, otp, expiresAt).StructScan(&acc)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to upsert otp: %w", err)
	}
	return acc, nil
}

// ConsumeOTP clears the code, but only while the stored code still equals otp. A concurrent
// consumer that got there first yields ErrOTPNotConsumed. Only DEVOTEE rows are marked
// verified; for institutions the flag is admin approval and is left alone.
func (r *accountRepo) ConsumeOTP(ctx context.Context, id uuid.UUID, otp string) (model.Account, error) {
	query := `
		UPDATE accounts
		SET is_verified = CASE WHEN role = 'DEVOTEE' THEN true ELSE is_verified END,
			otp = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND otp = $2
		RETURNING ` + accountColumns

	var acc model.Account
	err := r.q.QueryRowxContext(ctx, query, id, otp).StructScan(&acc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrOTPNotConsumed
		}
		return model.Account{}, fmt.Errorf("failed to consume otp: %w", err)
	}
	return acc, nil
}

// Create inserts a new account
func (r *accountRepo) Create(ctx context.Context, in NewAccount) (model.Account, error) {
	query := `
		INSERT INTO accounts (phone, name, email, password_hash, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns

	var acc model.Account
	err := r.q.QueryRowxContext(ctx, query,
		in.Phone, in.Name, in.Email, in.PasswordHash, string(in.Role), in.IsVerified,
	).StructScan(&acc)
	if err != nil {
		return model.Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return acc, nil
}

// Patch updates the provided fields of an account
func (r *accountRepo) Patch(ctx context.Context, id uuid.UUID, patch AccountPatch) (model.Account, error) {
	query := `
		UPDATE accounts
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone = COALESCE($4, phone),
		    profile_image = COALESCE($5, profile_image),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	var acc model.Account
	err := r.q.QueryRowxContext(ctx, query, id, patch.Name, patch.Email, patch.Phone, patch.ProfileImage).StructScan(&acc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account not found: %w", err)
		}
		return model.Account{}, fmt.Errorf("failed to update account: %w", err)
	}
	return acc, nil
}

// SetVerified sets is_verified for the account
func (r *accountRepo) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET is_verified = $2, updated_at = now() WHERE id = $1
	`, id, verified)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	return nil
}

// Delete removes the account row
func (r *accountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("account not found: %w", sql.ErrNoRows)
	}
	return nil
}

// ClearExpiredOTPs drops codes whose expiry has passed, keeping otp and expiry paired.
func (r *accountRepo) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE accounts
		SET otp = NULL, otp_expires_at = NULL
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired otps: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// ListInstitutions returns institution accounts and any account owning a temple, newest first.
func (r *accountRepo) ListInstitutions(ctx context.Context) ([]model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.role = 'INSTITUTION'
		   OR EXISTS (SELECT 1 FROM temples t WHERE t.account_id = a.id)
		ORDER BY a.created_at DESC`

	accounts := []model.Account{}
	if err := sqlx.SelectContext(ctx, r.q, &accounts, query); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	return accounts, nil
}
