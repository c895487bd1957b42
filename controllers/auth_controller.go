package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/middleware"
	"github.com/cppla/gymchallenge/models"
	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/utils"
)

// AuthController handles registration, login and the member profile.
type AuthController struct {
	users     *services.UserService
	tokens    *utils.TokenManager
	blacklist *utils.TokenBlacklist
	log       *zap.Logger
}

func NewAuthController(users *services.UserService, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist, log *zap.Logger) *AuthController {
	return &AuthController{users: users, tokens: tokens, blacklist: blacklist, log: orNop(log)}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), services.Registration{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
	})
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	a.issueToken(ctx, user)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	a.issueToken(ctx, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, user models.User) {
	token, exp, err := a.tokens.Generate(user.ID, user.Username)
	if err != nil {
		a.log.Error("sign token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       userResponse(user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	expiresAt, ok := ctx.Get(middleware.ContextTokenExpiryKey)
	exp, _ := expiresAt.(time.Time)
	if !ok || exp.IsZero() {
		exp = time.Now().Add(utils.DefaultTokenTTL)
	}
	a.blacklist.Add(ctx.Request.Context(), token, exp)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated member.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	user, err := a.users.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, userResponse(user))
}

// UpdateProfile changes display name, avatar or email of the caller.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		DisplayName *string `json:"display_name"`
		Avatar      *string `json:"avatar"`
		Email       *string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	user, err := a.users.UpdateProfile(ctx.Request.Context(), userID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		Email:       req.Email,
	})
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, userResponse(user))
}

// Search finds other members by name; used to compare progress with a friend.
func (a *AuthController) Search(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	found, err := a.users.Search(ctx.Request.Context(), strings.TrimSpace(ctx.Query("q")), userID)
	if err != nil {
		respondError(ctx, a.log, err)
		return
	}
	utils.Success(ctx, gin.H{"users": found})
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"email":        user.Email,
		"display_name": user.Name(),
		"avatar":       user.AvatarOrDefault(),
		"created_at":   user.CreatedAt,
	}
}
