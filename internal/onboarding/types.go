package onboarding

import (
	"github.com/google/uuid"

	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/validate"
)

// TempleFields are the temple profile fields accepted on create and update.
// Nil fields keep their current (or default) value.
type TempleFields struct {
	Name         *string  `json:"templeName" validate:"omitempty,min=1,max=200"`
	Category     *string  `json:"category" validate:"omitempty,max=100"`
	Location     *string  `json:"location"`
	FullAddress  *string  `json:"fullAddress"`
	Description  *string  `json:"description"`
	History      *string  `json:"history"`
	OpenTime     *string  `json:"openTime"`
	Phone        *string  `json:"templePhone"`
	Website      *string  `json:"website" validate:"omitempty,url"`
	MapURL       *string  `json:"mapUrl" validate:"omitempty,url"`
	Viewers      *string  `json:"viewers"`
	Rating       *float64 `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewsCount *int     `json:"reviewsCount" validate:"omitempty,gte=0"`
	LiveStatus   *bool    `json:"liveStatus"`
}

// EventInput is one inline event
type EventInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Date        string `json:"date" validate:"required"`
	Description string `json:"description"`
}

// CreateInstitutionInput creates an institution account with its temple
type CreateInstitutionInput struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Phone    string  `json:"phone" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"omitempty,min=6,max=72"`

	Temple       TempleFields
	PoojaIDs     []uuid.UUID  `json:"poojaIds"`
	InlineEvents []EventInput `json:"inlineEvents" validate:"dive"`

	// Paths of already stored uploads
	Image      *string  `json:"image"`
	HeroImages []string `json:"heroImages" validate:"max=10"`
}

// Validate checks the scalar fields and the phone number. Handlers call it before storing
// uploads; CreateInstitution calls it again.
func (in CreateInstitutionInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	_, err := auth.NormalizePhone(in.Phone)
	return err
}

// UpdateInstitutionInput patches an institution. InlineEvents, when non-nil (even empty),
// replaces every event of the temple; nil leaves events untouched.
type UpdateInstitutionInput struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone"`
	Email *string `json:"email" validate:"omitempty,email"`

	Temple       TempleFields
	PoojaIDs     []uuid.UUID   `json:"poojaIds"`
	InlineEvents *[]EventInput `json:"inlineEvents"`

	// ExistingHeroImages is the kept list; the temple's current list is used when nil.
	ExistingHeroImages *[]string `json:"existingHeroImages"`
	Image              *string   `json:"image"`
	NewHeroImages      []string  `json:"heroImages" validate:"max=10"`
}

// StatusInput sets the approval and publication flags. They are independent.
type StatusInput struct {
	IsVerified *bool `json:"isVerified"`
	LiveStatus *bool `json:"liveStatus"`
}

// MyTempleUpdate is a temple owner's self-service profile update
type MyTempleUpdate struct {
	Temple TempleFields
	// Image replaces the main image; HeroImages, when non-empty, replaces the hero list
	Image      *string  `json:"image"`
	HeroImages []string `json:"heroImages" validate:"max=10"`
}

// Institution is an account together with the temple it owns
type Institution struct {
	Account model.PublicAccount `json:"user"`
	Temple  *model.Temple       `json:"temple"`
}

// TempleCounts mirrors the row counts shown in the admin list
type TempleCounts struct {
	Poojas int `json:"poojas"`
	Events int `json:"events"`
}

// TempleDetail is a temple with its poojas and events
type TempleDetail struct {
	model.Temple
	Poojas []model.PoojaSummary `json:"poojas"`
	Events []model.Event        `json:"events"`
	Count  TempleCounts         `json:"_count"`
}

// InstitutionView is one row of the admin institution list
type InstitutionView struct {
	model.PublicAccount
	Temple *TempleDetail `json:"temple"`
}

// Owner is the contact block attached to a temple profile
type Owner struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email"`
}

// MyTemple is the owner's view of their temple
type MyTemple struct {
	model.Temple
	User Owner `json:"user"`
}

func (f TempleFields) patch() repo.TemplePatch {
	return repo.TemplePatch{
		Name:         f.Name,
		Category:     f.Category,
		Location:     f.Location,
		FullAddress:  f.FullAddress,
		Description:  f.Description,
		History:      f.History,
		OpenTime:     f.OpenTime,
		Phone:        f.Phone,
		Website:      f.Website,
		MapURL:       f.MapURL,
		Viewers:      f.Viewers,
		Rating:       f.Rating,
		ReviewsCount: f.ReviewsCount,
		LiveStatus:   f.LiveStatus,
	}
}

func toNewEvents(in []EventInput) []repo.NewEvent {
	out := make([]repo.NewEvent, len(in))
	for i, ev := range in {
		out[i] = repo.NewEvent{Name: ev.Name, Date: ev.Date, Description: ev.Description}
	}
	return out
}
