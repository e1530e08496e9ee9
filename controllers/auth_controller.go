package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumeha/presence/middleware"
	"github.com/lumeha/presence/models"
	"github.com/lumeha/presence/utils"
)

const tokenDuration = 24 * time.Hour

// AuthController handles account registration, login and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register creates an employee account.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=3,max=64"`
		Password string `json:"password" binding:"required,min=8,max=128"`
		Email    string `json:"email" binding:"omitempty,email"`
		FullName string `json:"full_name" binding:"omitempty,max=128"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))

	var existing models.User
	err := a.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		utils.Error(ctx, http.StatusConflict, 40911, "username already taken")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to check username")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
		return
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         models.RoleEmployee,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to create user")
		return
	}

	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username)
	utils.Success(ctx, gin.H{"id": user.ID, "username": user.Username})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))

	var user models.User
	err := a.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !utils.CheckPassword(user.PasswordHash, req.Password)) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "invalid username or password")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to look up user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, tokenDuration)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_in": int(tokenDuration.Seconds()),
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"full_name": user.FullName,
			"role":      user.Role,
		},
	})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID := middleware.CurrentUserID(ctx)

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to get user")
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the presented token until its natural expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40012, "missing bearer token")
		return
	}
	token := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid token")
		return
	}

	expiresAt := time.Now().Add(tokenDuration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"revoked": true})
}
