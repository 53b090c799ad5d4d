package api

import (
	"net/http"

	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthController управляет API endpoints для авторизации
type AuthController struct {
	authService *services.AuthService
}

// NewAuthController создает новый контроллер авторизации
func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login обрабатывает вход пользователя
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := ac.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, "Přihlášení se nezdařilo", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Signup регистрирует пользователя без прав
// POST /api/v1/auth/signup
func (ac *AuthController) Signup(c *gin.Context) {
	var req services.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := ac.authService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Registrace se nezdařila", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Me возвращает текущего пользователя и его права
// GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Vyžadováno přihlášení"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"permissions": user.EffectivePermissions(),
	})
}
