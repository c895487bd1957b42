package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gymchallenge/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token expiry as time.Time.
	ContextTokenExpiryKey = "token_expiry"
)

// Auth validates bearer tokens against a TokenManager and a blacklist.
type Auth struct {
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
}

func NewAuth(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) *Auth {
	return &Auth{tokens: tokens, blacklist: blacklist}
}

// authenticate returns the claims of the request, or a status code and message
// when the header is absent (code 0) or invalid.
func (a *Auth) authenticate(ctx *gin.Context) (*utils.Claims, string, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "", 40101, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "", 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, "", 40103, "empty bearer token"
	}

	if a.blacklist != nil && a.blacklist.Contains(ctx.Request.Context(), tokenString) {
		return nil, "", 40104, "token revoked"
	}

	claims, err := a.tokens.Parse(tokenString)
	if err != nil {
		return nil, "", 40105, "invalid token"
	}
	return claims, tokenString, 0, ""
}

func setIdentity(ctx *gin.Context, claims *utils.Claims, token string) {
	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, token)
	expiresAt := time.Now().Add(utils.DefaultTokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	ctx.Set(ContextTokenExpiryKey, expiresAt)
}

// Required ensures the request is authenticated via JWT.
func (a *Auth) Required() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, token, code, msg := a.authenticate(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		setIdentity(ctx, claims, token)
		ctx.Next()
	}
}

// Optional sets the identity when a valid token is present and lets anonymous
// requests through. A present but invalid token is still rejected.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		claims, token, code, msg := a.authenticate(ctx)
		if claims == nil {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		setIdentity(ctx, claims, token)
		ctx.Next()
	}
}

// UserID returns the authenticated user id set by Required or Optional.
func UserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}
