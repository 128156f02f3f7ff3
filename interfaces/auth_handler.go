package interfaces

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shiftmatch/application"
	"shiftmatch/domain"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	var in application.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	resp, err := h.Auth.Register(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *HTTPHandler) WorkerLogin(c *gin.Context) {
	var in application.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	resp, err := h.Auth.WorkerLogin(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) FacilityLogin(c *gin.Context) {
	h.adminLogin(c, FacilitySessionCookie, h.Auth.FacilityLogin)
}

func (h *HTTPHandler) SystemAdminLogin(c *gin.Context) {
	h.adminLogin(c, SystemAdminSessionCookie, h.Auth.SystemAdminLogin)
}

type loginFunc func(ctx context.Context, in application.LoginInput) (*domain.Session, error)

func (h *HTTPHandler) adminLogin(c *gin.Context, cookie string, login loginFunc) {
	var in application.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	sess, err := login(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.setSessionCookie(c, cookie, sess.ID, int(application.AdminSessionTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"account_type": sess.AccountType,
		"account_id":   sess.AccountID,
		"facility_id":  sess.FacilityID,
		"name":         sess.Name,
		"email":        sess.Email,
		"expires_at":   sess.ExpiresAt,
	})
}

// Logout clears the cookie even when the session is already gone.
func (h *HTTPHandler) Logout(cookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(cookie); err == nil {
			if err := h.Auth.Logout(c.Request.Context(), id); err != nil {
				h.respondError(c, err)
				return
			}
		}
		h.setSessionCookie(c, cookie, "", -1)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (h *HTTPHandler) setSessionCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.secureCookie, true)
}

func (h *HTTPHandler) RequestPasswordReset(c *gin.Context) {
	var in application.PasswordResetRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Auth.RequestPasswordReset(c.Request.Context(), in); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "パスワード再設定用のメールを送信しました"})
}

func (h *HTTPHandler) ConfirmPasswordReset(c *gin.Context) {
	var in application.PasswordResetConfirm
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), in); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// uintParam reads a positive numeric path parameter.
func (h *HTTPHandler) uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		h.respondError(c, domain.Validation(name+" must be a positive integer"))
		return 0, false
	}
	return uint(v), true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
