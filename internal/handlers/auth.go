package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daroosa/pharmacy_shop/internal/events"
	"github.com/daroosa/pharmacy_shop/internal/logging"
	"github.com/daroosa/pharmacy_shop/internal/models"
	"github.com/daroosa/pharmacy_shop/internal/otp"
	"github.com/daroosa/pharmacy_shop/internal/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	Tokens   *token.Service
}

// RequestOTP issues a login code for the phone number. The code itself is
// never returned; delivery goes through the otp_events topic.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := otp.ValidatePhone(req.PhoneNumber); err != nil {
		return httpError(c, err)
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return httpError(c, err)
	}
	hash, err := otp.HashCode(code)
	if err != nil {
		return httpError(c, err)
	}

	row := models.OTPCode{
		PhoneNumber: req.PhoneNumber,
		CodeHash:    hash,
		ExpiresAt:   time.Now().Add(otp.TTL),
	}
	if err := h.DB.Create(&row).Error; err != nil {
		return httpError(c, err)
	}

	publish(c, h.Producer, events.TopicOTP, row.ID, map[string]any{
		"type":  "otp_requested",
		"phone": req.PhoneNumber,
		"code":  code,
	})

	return c.JSON(http.StatusOK, echo.Map{"status": "sent"})
}

// VerifyOTP checks the code, creates the user on first login and sets the
// token cookie pair.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req struct {
		PhoneNumber string `json:"phone_number"`
		Code        string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := otp.ValidatePhone(req.PhoneNumber); err != nil {
		return httpError(c, err)
	}

	var row models.OTPCode
	err := h.DB.Where("phone_number = ? AND used = ? AND expires_at > ?", req.PhoneNumber, false, time.Now()).
		Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "code expired or not requested")
		}
		return httpError(c, err)
	}
	if !otp.CheckCode(row.CodeHash, req.Code) {
		return echo.NewHTTPError(http.StatusUnauthorized, "wrong code")
	}
	if err := h.DB.Model(&row).Update("used", true).Error; err != nil {
		return httpError(c, err)
	}

	var user models.User
	if err := h.DB.Where(models.User{PhoneNumber: req.PhoneNumber}).
		Attrs(models.User{Role: "user"}).FirstOrCreate(&user).Error; err != nil {
		return httpError(c, err)
	}

	access, err := token.SignAccessToken(user.ID, user.Role, h.Tokens.JWTSecret)
	if err != nil {
		return httpError(c, err)
	}
	refresh, err := token.SignRefreshToken(user.ID, user.Role, h.Tokens.RefreshSecret)
	if err != nil {
		return httpError(c, err)
	}
	if err := token.SaveRefreshToken(h.DB, refresh, user.ID); err != nil {
		return httpError(c, err)
	}

	c.SetCookie(token.CreateCookie("accessToken", access, "/", time.Now().Add(token.AccessTTL)))
	c.SetCookie(token.CreateCookie("refreshToken", refresh, "/", time.Now().Add(token.RefreshTTL)))

	logging.With(c.Request().Context(), "user_id", user.ID).Info("user logged in")
	return c.JSON(http.StatusOK, user)
}

// Logout revokes the refresh token and expires both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		if err := h.Tokens.RevokeRefresh(cookie.Value); err != nil {
			return httpError(c, err)
		}
	}
	expired := time.Unix(0, 0)
	c.SetCookie(token.CreateCookie("accessToken", "", "/", expired))
	c.SetCookie(token.CreateCookie("refreshToken", "", "/", expired))
	return c.JSON(http.StatusOK, echo.Map{"status": "logged out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	var user models.User
	if err := h.DB.First(&user, currentUserID(c)).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe sets the profile names used for order snapshots.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.DB.First(&user, currentUserID(c)).Error; err != nil {
		return httpError(c, err)
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if err := h.DB.Save(&user).Error; err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
