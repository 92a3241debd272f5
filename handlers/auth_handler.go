package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// StartVerification texts a verification code to the phone number.
func (h *AuthHandler) StartVerification(c echo.Context) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil || req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.auth.StartPhoneVerification(c.Request().Context(), req.PhoneNumber); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "code_sent"})
}

// VerifyCode signs the user in with the texted code.
func (h *AuthHandler) VerifyCode(c echo.Context) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		Code        string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || req.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	needsPopulation, err := h.auth.VerifyCode(c.Request().Context(), req.PhoneNumber, req.Code)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"signed_in":        true,
		"needs_population": needsPopulation,
	})
}

// CompleteProfile fills in the user row after first sign-in.
func (h *AuthHandler) CompleteProfile(c echo.Context) error {
	var req struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.auth.CompleteProfile(c.Request().Context(), req.FirstName, req.LastName, req.Email, req.DateOfBirth); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "profile_completed"})
}

// GetProfile returns the signed-in user's profile.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	profile, err := h.auth.Profile(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// SignOut drops the stored session.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.auth.SignOut(); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
