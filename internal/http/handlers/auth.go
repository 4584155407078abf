package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/http/respond"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
	"github.com/ShivpalBellway/DevBhakti/internal/model"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *auth.Service
	storage     upload.Storage
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, storage upload.Storage, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		storage:     storage,
		logger:      logger,
	}
}

// HandleSendOTP handles POST /api/auth/send-otp
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.RequestOTPInput
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	issued, err := h.authService.RequestOTP(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.OK(w, http.StatusOK, "OTP sent successfully", issued)
}

// HandleVerifyOTP handles POST /api/auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPInput
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	session, err := h.authService.VerifyOTP(r.Context(), req)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.OK(w, http.StatusOK, "Login successful", session)
}

// HandleAdminLogin handles POST /api/admin/auth/login
func (h *AuthHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleAdmin)
}

// HandleInstitutionLogin handles POST /api/institution/auth/login
func (h *AuthHandler) HandleInstitutionLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleInstitution)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role model.Role) {
	var req auth.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req, role)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.OK(w, http.StatusOK, "Login successful", session)
}

// HandleMe handles GET /api/auth/me (protected). Returns the authenticated account.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("No token, authorization denied"))
		return
	}

	acc, err := h.authService.Me(r.Context(), accountID)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.OK(w, http.StatusOK, "", acc)
}

// HandleUpdateProfile handles PUT /api/auth/profile. Accepts a multipart form with optional
// name, email and a profileImage file.
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, r, h.logger, apperr.Unauthenticated("No token, authorization denied"))
		return
	}

	f, err := parseForm(w, r, maxProfileFormBody)
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	in := auth.ProfileUpdate{
		Name:  f.nonEmpty("name"),
		Email: f.nonEmpty("email"),
	}
	in.ProfileImage, err = saveSingle(r.Context(), h.storage, upload.KindUsers, f, "profileImage")
	if err != nil {
		respond.Error(w, r, h.logger, err)
		return
	}

	acc, err := h.authService.UpdateProfile(r.Context(), accountID, in)
	if err != nil {
		discard(r.Context(), h.storage, h.logger, in.ProfileImage, nil)
		respond.Error(w, r, h.logger, err)
		return
	}

	respond.OK(w, http.StatusOK, "Profile updated successfully", acc)
}
