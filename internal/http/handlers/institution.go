package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
	"github.com/ShivpalBellway/DevBhakti/internal/onboarding"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

// InstitutionHandler serves institution onboarding for admins and temple owners
type InstitutionHandler struct {
	onboarding *onboarding.Service
	storage    upload.Storage
	logger     *zap.Logger
}

// NewInstitutionHandler creates a new institution handler
func NewInstitutionHandler(svc *onboarding.Service, storage upload.Storage, logger *zap.Logger) *InstitutionHandler {
	return &InstitutionHandler{onboarding: svc, storage: storage, logger: logger}
}

// HandleList handles GET /api/admin/institutions
func (h *InstitutionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.onboarding.ListInstitutions(r.Context())
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "", list)
}

// HandleAdminCreate handles POST /api/admin/institutions. Admin-added institutions are
// approved immediately.
func (h *InstitutionHandler) HandleAdminCreate(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true, "Institution created successfully")
}

// HandleRegister handles POST /api/institution/temples/register. Self-registered
// institutions wait for admin approval.
func (h *InstitutionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false, "Temple registered successfully. Awaiting admin approval.")
}

func (h *InstitutionHandler) create(w http.ResponseWriter, r *http.Request, autoVerify bool, message string) {
	f, err := parseForm(w, r, maxTempleFormBody)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	in, err := h.createInput(r, f)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if !autoVerify {
		// public registration cannot claim existing poojas
		in.PoojaIDs = nil
	}

	inst, err := h.onboarding.CreateInstitution(r.Context(), in, autoVerify)
	if err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, in.HeroImages)
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusCreated, message, inst)
}

func (h *InstitutionHandler) createInput(r *http.Request, f *form) (onboarding.CreateInstitutionInput, error) {
	in := onboarding.CreateInstitutionInput{
		Name:     f.get("name"),
		Phone:    f.get("phone"),
		Email:    f.nonEmpty("email"),
		Password: f.get("password"),
	}

	var err error
	if in.Temple, err = templeFields(f); err != nil {
		return in, err
	}
	if _, err = f.jsonValue("poojaIds", &in.PoojaIDs); err != nil {
		return in, err
	}
	if _, err = f.jsonValue("inlineEvents", &in.InlineEvents); err != nil {
		return in, err
	}

	heroFiles := f.fileList("heroImages")
	if len(heroFiles) > maxHeroImages {
		return in, apperr.Validation("At most 10 hero images are allowed")
	}
	// nothing is written to disk for a request that cannot succeed
	if err = in.Validate(); err != nil {
		return in, err
	}
	if in.Image, err = saveSingle(r.Context(), h.storage, upload.KindTemples, f, "image"); err != nil {
		return in, err
	}
	if in.HeroImages, err = saveFiles(r.Context(), h.storage, upload.KindTemples, heroFiles); err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, nil)
		in.Image = nil
		return in, err
	}
	return in, nil
}

// HandleAdminUpdate handles PUT /api/admin/institutions/{id}
func (h *InstitutionHandler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	f, err := parseForm(w, r, maxTempleFormBody)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	in := onboarding.UpdateInstitutionInput{
		Name:  f.nonEmpty("name"),
		Phone: f.nonEmpty("phone"),
		Email: f.nonEmpty("email"),
	}
	if in.Temple, err = templeFields(f); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if _, err = f.jsonValue("poojaIds", &in.PoojaIDs); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	// Presence alone decides whether events are replaced, so "[]" clears them.
	var events []onboarding.EventInput
	present, err := f.jsonValue("inlineEvents", &events)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if present {
		if events == nil {
			events = []onboarding.EventInput{}
		}
		in.InlineEvents = &events
	}

	var existing []string
	present, err = f.jsonValue("existingHeroImages", &existing)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if present {
		if existing == nil {
			existing = []string{}
		}
		in.ExistingHeroImages = &existing
	}

	heroFiles := f.fileList("heroImages")
	if len(heroFiles) > maxHeroImages {
		respond.Error(w, r, h.logger, apperr.Validation("At most 10 hero images are allowed"))
		return
	}
	if in.Image, err = saveSingle(r.Context(), h.storage, upload.KindTemples, f, "image"); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if in.NewHeroImages, err = saveFiles(r.Context(), h.storage, upload.KindTemples, heroFiles); err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, nil)
		respond.Error(w, r, h.logger, err)
		return
	}

	inst, err := h.onboarding.UpdateInstitution(r.Context(), id, in)
	if err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, in.NewHeroImages)
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "Institution updated successfully", inst)
}

// HandleAdminDelete handles DELETE /api/admin/institutions/{id}
func (h *InstitutionHandler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if err := h.onboarding.DeleteInstitution(r.Context(), id); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "Institution deleted successfully", nil)
}

// HandleToggleStatus handles PATCH /api/admin/institutions/{id}/status
func (h *InstitutionHandler) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	var req onboarding.StatusInput
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	inst, err := h.onboarding.ToggleTempleStatus(r.Context(), id, req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "Status updated successfully", inst)
}

// HandleGetMyTemple handles GET /api/institution/temples/me
func (h *InstitutionHandler) HandleGetMyTemple(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("No token, authorization denied"))
		return
	}
	temple, err := h.onboarding.GetMyTemple(r.Context(), accountID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "", temple)
}

// HandleUpdateMyTemple handles PUT /api/institution/temples/me
func (h *InstitutionHandler) HandleUpdateMyTemple(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("No token, authorization denied"))
		return
	}
	f, err := parseForm(w, r, maxTempleFormBody)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	var in onboarding.MyTempleUpdate
	if in.Temple, err = templeFields(f); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	heroFiles := f.fileList("heroImages")
	if len(heroFiles) > maxHeroImages {
		respond.Error(w, r, h.logger, apperr.Validation("At most 10 hero images are allowed"))
		return
	}
	if in.Image, err = saveSingle(r.Context(), h.storage, upload.KindTemples, f, "image"); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}
	if in.HeroImages, err = saveFiles(r.Context(), h.storage, upload.KindTemples, heroFiles); err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, nil)
		respond.Error(w, r, h.logger, err)
		return
	}

	temple, err := h.onboarding.UpdateMyTemple(r.Context(), accountID, in)
	if err != nil {
		discard(r.Context(), h.storage, h.logger, in.Image, in.HeroImages)
		respond.Error(w, r, h.logger, err)
		return
	}
	respond.OK(w, http.StatusOK, "Temple profile updated successfully", temple)
}

// templeFields reads the temple profile fields of a form. Text fields that were sent are
// applied as given; numeric and boolean fields are ignored when empty.
func templeFields(f *form) (onboarding.TempleFields, error) {
	t := onboarding.TempleFields{
		Name:        f.nonEmpty("templeName"),
		Category:    f.str("category"),
		Location:    f.str("location"),
		FullAddress: f.str("fullAddress"),
		Description: f.str("description"),
		History:     f.str("history"),
		OpenTime:    f.str("openTime"),
		Phone:       f.str("templePhone"),
		Website:     f.nonEmpty("website"),
		MapURL:      f.nonEmpty("mapUrl"),
		Viewers:     f.nonEmpty("viewers"),
	}

	var err error
	if t.Rating, err = f.float("rating"); err != nil {
		return t, err
	}
	if t.ReviewsCount, err = f.integer("reviewsCount"); err != nil {
		return t, err
	}
	if t.LiveStatus, err = f.boolean("liveStatus"); err != nil {
		return t, err
	}
	return t, nil
}
