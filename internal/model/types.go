package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Role is the account role
type Role string

const (
	RoleDevotee     Role = "DEVOTEE"
	RoleInstitution Role = "INSTITUTION"
	RoleAdmin       Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleDevotee, RoleInstitution, RoleAdmin:
		return true
	}
	return false
}

// Account represents a devotee, institution or admin, keyed by phone number.
// OTP and OTPExpiresAt are both set or both nil.
type Account struct {
	ID           uuid.UUID  `db:"id"`
	Phone        string     `db:"phone"`
	Name         string     `db:"name"`
	Email        *string    `db:"email"`
	PasswordHash *string    `db:"password_hash"`
	Role         Role       `db:"role"`
	IsVerified   bool       `db:"is_verified"`
	OTP          *string    `db:"otp"`
	OTPExpiresAt *time.Time `db:"otp_expires_at"`
	ProfileImage *string    `db:"profile_image"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// PublicAccount is the account projection safe to serialize.
type PublicAccount struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        *string   `json:"email"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"isVerified"`
	ProfileImage *string   `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns the serializable projection; password hash and otp are never included.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:           a.ID,
		Name:         a.Name,
		Phone:        a.Phone,
		Email:        a.Email,
		Role:         a.Role,
		IsVerified:   a.IsVerified,
		ProfileImage: a.ProfileImage,
		CreatedAt:    a.CreatedAt,
	}
}

// Temple is the public-facing profile owned by one institution account.
type Temple struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	AccountID    uuid.UUID      `db:"account_id" json:"userId"`
	Code         string         `db:"code" json:"templeId"`
	Name         string         `db:"name" json:"name"`
	Category     string         `db:"category" json:"category"`
	Location     string         `db:"location" json:"location"`
	FullAddress  string         `db:"full_address" json:"fullAddress"`
	Description  string         `db:"description" json:"description"`
	History      string         `db:"history" json:"history"`
	OpenTime     string         `db:"open_time" json:"openTime"`
	Phone        string         `db:"phone" json:"phone"`
	Website      *string        `db:"website" json:"website"`
	MapURL       *string        `db:"map_url" json:"mapUrl"`
	Viewers      *string        `db:"viewers" json:"viewers"`
	Image        *string        `db:"image" json:"image"`
	HeroImages   pq.StringArray `db:"hero_images" json:"heroImages"`
	Rating       float64        `db:"rating" json:"rating"`
	ReviewsCount int            `db:"reviews_count" json:"reviewsCount"`
	LiveStatus   bool           `db:"live_status" json:"liveStatus"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// PoojaPackage is a priced variant of a pooja.
type PoojaPackage struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

// ProcessStep is one step of how a pooja is performed.
type ProcessStep struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// FAQ is a question/answer pair shown on the pooja page.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// JSONList stores a slice as a jsonb column.
type JSONList[T any] []T

// Value implements driver.Valuer
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]T(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *JSONList[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = JSONList[T]{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONList", src)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode jsonb list: %w", err)
	}
	*l = out
	return nil
}

// Pooja is a bookable ritual offered by a temple. TempleID is required.
type Pooja struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	TempleID     uuid.UUID              `db:"temple_id" json:"templeId"`
	Name         string                 `db:"name" json:"name"`
	Category     string                 `db:"category" json:"category"`
	Price        decimal.Decimal        `db:"price" json:"price"`
	Duration     string                 `db:"duration" json:"duration"`
	Description  string                 `db:"description" json:"description"`
	Packages     JSONList[PoojaPackage] `db:"packages" json:"packages"`
	ProcessSteps JSONList[ProcessStep]  `db:"process_steps" json:"processSteps"`
	FAQs         JSONList[FAQ]          `db:"faqs" json:"faqs"`
	CreatedAt    time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time              `db:"updated_at" json:"updatedAt"`
}

// PoojaSummary is the short pooja form embedded in institution listings.
type PoojaSummary struct {
	ID       uuid.UUID       `db:"id" json:"id"`
	TempleID uuid.UUID       `db:"temple_id" json:"-"`
	Name     string          `db:"name" json:"name"`
	Category string          `db:"category" json:"category"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Duration string          `db:"duration" json:"duration"`
}

// Event is a dated happening at a temple, managed inline with the temple profile.
type Event struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TempleID    uuid.UUID `db:"temple_id" json:"templeId"`
	Name        string    `db:"name" json:"name"`
	Date        string    `db:"event_date" json:"date"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
