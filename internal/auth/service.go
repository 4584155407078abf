package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/logging"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/validate"
)

const defaultDevoteeName = "Devotee"

// RequestOTPInput is the body of a send-otp request
type RequestOTPInput struct {
	Phone string  `json:"phone" validate:"required"`
	Name  string  `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// OTPIssued is returned by RequestOTP. Code is set only in dev mode.
type OTPIssued struct {
	Phone string `json:"phone"`
	Code  string `json:"otp,omitempty"`
}

// VerifyOTPInput is the body of a verify-otp request
type VerifyOTPInput struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"otp" validate:"required"`
}

// LoginInput is the body of a password login
type LoginInput struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate patches the caller's own account. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email" validate:"omitempty,email"`
	ProfileImage *string `json:"profileImage"`
}

// Session is a signed-in account
type Session struct {
	Token   string              `json:"token"`
	Account model.PublicAccount `json:"user"`
}

// Options configure a Service
type Options struct {
	// DevMode echoes issued codes back to the caller.
	DevMode bool
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Service orchestrates authentication operations
type Service struct {
	accounts repo.AccountRepo
	jwt      *JWTService
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	devMode  bool
	now      func() time.Time
}

// NewService creates a new auth service
func NewService(accounts repo.AccountRepo, jwtService *JWTService, notifier Notifier, logger *zap.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		accounts: accounts,
		jwt:      jwtService,
		notifier: notifier,
		logger:   logger,
		metrics:  opts.Metrics,
		devMode:  opts.DevMode,
		now:      now,
	}
}

// RequestOTP issues a fresh code for the phone, creating a devotee account on first contact.
// An existing account only has its code and expiry replaced.
func (s *Service) RequestOTP(ctx context.Context, in RequestOTPInput) (OTPIssued, error) {
	if err := validate.Struct(in); err != nil {
		return OTPIssued{}, err
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return OTPIssued{}, err
	}

	code, err := generateOTPCode()
	if err != nil {
		return OTPIssued{}, apperr.Internal(err)
	}
	expiresAt := s.now().Add(otpExpiry)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultDevoteeName
	}
	if _, err := s.accounts.UpsertOTP(ctx, phone, name, in.Email, code, expiresAt); err != nil {
		return OTPIssued{}, apperr.FromDB(err, "Account not found")
	}

	if err := s.notifier.SendCode(ctx, phone, code); err != nil {
		s.logger.Error("otp delivery failed", logging.Phone(phone), zap.Error(err))
		return OTPIssued{}, apperr.Internal(err)
	}
	s.metrics.RecordOTP(metrics.OTPIssued)
	s.logger.Info("otp issued", logging.Phone(phone), zap.Time("expires_at", expiresAt))

	out := OTPIssued{Phone: phone}
	if s.devMode {
		out.Code = code
	}
	return out, nil
}

// VerifyOTP checks the code, marks a devotee verified and signs a session. Institutions
// awaiting approval are refused here as in Login. Codes are
// single use: the conditional consume fails for a code already taken by another request.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyOTPInput) (Session, error) {
	if err := validate.Struct(in); err != nil {
		return Session{}, err
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return Session{}, err
	}

	acc, err := s.accounts.GetByPhone(ctx, phone)
	if err != nil {
		return Session{}, apperr.FromDB(err, "User not found")
	}

	if acc.OTP == nil || acc.OTPExpiresAt == nil ||
		!constantTimeCompare(*acc.OTP, in.Code) ||
		s.now().After(*acc.OTPExpiresAt) {
		s.metrics.RecordOTP(metrics.OTPRejected)
		return Session{}, apperr.InvalidOTP()
	}
	if acc.Role == model.RoleInstitution && !acc.IsVerified {
		return Session{}, apperr.Forbidden("Your account is awaiting admin approval")
	}

	acc, err = s.accounts.ConsumeOTP(ctx, acc.ID, in.Code)
	if err != nil {
		if errors.Is(err, repo.ErrOTPNotConsumed) {
			s.metrics.RecordOTP(metrics.OTPRejected)
			return Session{}, apperr.InvalidOTP()
		}
		return Session{}, apperr.FromDB(err, "User not found")
	}
	s.metrics.RecordOTP(metrics.OTPVerified)

	return s.session(acc)
}

// Login authenticates an institution or admin by phone and password.
// Unverified institutions are refused until an admin approves them.
func (s *Service) Login(ctx context.Context, in LoginInput, role model.Role) (Session, error) {
	if err := validate.Struct(in); err != nil {
		return Session{}, err
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return Session{}, err
	}

	acc, err := s.accounts.GetByPhone(ctx, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	if acc.Role != role || acc.PasswordHash == nil || !CheckPassword(*acc.PasswordHash, in.Password) {
		s.logger.Warn("password login rejected", logging.Phone(phone), zap.String("role", string(role)))
		return Session{}, apperr.Unauthenticated("Invalid credentials")
	}
	if role == model.RoleInstitution && !acc.IsVerified {
		return Session{}, apperr.Forbidden("Your account is awaiting admin approval")
	}

	return s.session(acc)
}

// Me returns the public projection of an account
func (s *Service) Me(ctx context.Context, accountID uuid.UUID) (model.PublicAccount, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return model.PublicAccount{}, apperr.FromDB(err, "User not found")
	}
	return acc.Public(), nil
}

// UpdateProfile patches the provided fields; a new image path replaces the old one.
func (s *Service) UpdateProfile(ctx context.Context, accountID uuid.UUID, in ProfileUpdate) (model.PublicAccount, error) {
	if err := validate.Struct(in); err != nil {
		return model.PublicAccount{}, err
	}
	acc, err := s.accounts.Patch(ctx, accountID, repo.AccountPatch{
		Name:         in.Name,
		Email:        in.Email,
		ProfileImage: in.ProfileImage,
	})
	if err != nil {
		return model.PublicAccount{}, apperr.FromDB(err, "User not found")
	}
	return acc.Public(), nil
}

func (s *Service) session(acc model.Account) (Session, error) {
	token, err := s.jwt.SignSession(acc.ID, acc.Phone, acc.Role)
	if err != nil {
		return Session{}, apperr.Internal(err)
	}
	return Session{Token: token, Account: acc.Public()}, nil
}

// NewAdminInput creates an admin account
type NewAdminInput struct {
	Phone    string `validate:"required"`
	Name     string `validate:"required,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

// CreateAdmin bootstraps a verified admin account with a password login.
func (s *Service) CreateAdmin(ctx context.Context, in NewAdminInput) (model.PublicAccount, error) {
	if err := validate.Struct(in); err != nil {
		return model.PublicAccount{}, err
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return model.PublicAccount{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return model.PublicAccount{}, apperr.Internal(err)
	}

	acc, err := s.accounts.Create(ctx, repo.NewAccount{
		Phone:        phone,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: &hash,
		Role:         model.RoleAdmin,
		IsVerified:   true,
	})
	if err != nil {
		return model.PublicAccount{}, apperr.FromDB(err, "User not found")
	}
	s.logger.Info("admin created", zap.String("account_id", acc.ID.String()), logging.Phone(phone))
	return acc.Public(), nil
}
