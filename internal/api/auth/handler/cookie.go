package authHandler

import (
	jwtPkg "VideoPresence/pkg/jwt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const loggedInCookie = "logged_in"

func (h *AuthHandler) setSessionCookies(ctx *fiber.Ctx, accessToken, refreshToken string, accessExpiresAt int64) {
	accessExpiry := time.Unix(accessExpiresAt, 0)

	ctx.Cookie(&fiber.Cookie{
		Name:     jwtPkg.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	if refreshToken != "" {
		ctx.Cookie(&fiber.Cookie{
			Name:     jwtPkg.RefreshTokenCookie,
			Value:    refreshToken,
			Path:     "/",
			Expires:  time.Now().Add(7 * 24 * time.Hour),
			HTTPOnly: true,
			Secure:   h.secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     loggedInCookie,
		Value:    "True",
		Path:     "/",
		Expires:  accessExpiry,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookies(ctx *fiber.Ctx) {
	for _, name := range []string{jwtPkg.AccessTokenCookie, jwtPkg.RefreshTokenCookie, loggedInCookie} {
		ctx.Cookie(&fiber.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
	}
}
