package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLen       = 8
	DefaultTokenTTL      = 24 * time.Hour
	defaultLoginAttempts = 5
	defaultLoginWindow   = 15 * time.Minute
)

// SignupInput регистрация пользователя
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserInput создание пользователя администратором (CLI)
type CreateUserInput struct {
	SignupInput
	IsSuperuser bool
	Skupina     string // Название группы, пусто = без группы
}

// LoginResult токен и пользователь
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"`
	User      *models.User `json:"user"`
}

// tokenClaims полезная нагрузка токена
type tokenClaims struct {
	Sub string `json:"sub"`
	Usr string `json:"usr"`
	Exp int64  `json:"exp"`
}

// AuthService регистрация, вход и проверка токенов
type AuthService struct {
	db          *gorm.DB
	redis       *utils.RedisClient
	secret      []byte
	ttl         time.Duration
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewAuthService создает новый экземпляр AuthService
func NewAuthService(db *gorm.DB, secret string) *AuthService {
	return &AuthService{
		db:          db,
		secret:      []byte(secret),
		ttl:         DefaultTokenTTL,
		maxAttempts: defaultLoginAttempts,
		window:      defaultLoginWindow,
		now:         time.Now,
	}
}

// SetRedis включает ограничение неудачных входов
func (s *AuthService) SetRedis(r *utils.RedisClient) {
	s.redis = r
}

// SetTokenTTL задает срок жизни токена
func (s *AuthService) SetTokenTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SetLoginLimit задает число неудачных попыток за окно
func (s *AuthService) SetLoginLimit(attempts int, window time.Duration) {
	if attempts > 0 {
		s.maxAttempts = attempts
	}
	if window > 0 {
		s.window = window
	}
}

func (in *SignupInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return validationError("username", "povinné pole")
	}
	if err := maxLen("username", &in.Username, 150); err != nil {
		return err
	}
	if in.Email == "" {
		return validationError("email", "povinné pole")
	}
	if !validEmail(in.Email) {
		return validationError("email", "neplatná e-mailová adresa")
	}
	if len([]rune(in.Password)) < minPasswordLen {
		return validationError("password", fmt.Sprintf("heslo musí mít alespoň %d znaků", minPasswordLen))
	}
	return nil
}

// Signup регистрирует пользователя без прав
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	return s.CreateUser(ctx, CreateUserInput{SignupInput: in})
}

// CreateUser создает пользователя, при необходимости суперпользователя или члена группы
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хэширования пароля: %w", err)
	}

	email := in.Email
	user := models.User{
		Username:     in.Username,
		Email:        &email,
		PasswordHash: string(hash),
		IsSuperuser:  in.IsSuperuser,
		IsActive:     true,
	}
	db := s.db.WithContext(ctx)
	if in.Skupina != "" {
		var sk models.Skupina
		if err := db.First(&sk, "name = ?", in.Skupina).Error; err != nil {
			return nil, notFoundOr(err, fmt.Sprintf("skupina %q", in.Skupina))
		}
		user.SkupinaID = &sk.ID
	}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: uživatel %s již existuje", ErrConflict, in.Username)
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	log.Printf("✅ Создан пользователь %s", user.Username)
	return &user, nil
}

func loginFailKey(username string) string {
	return utils.KeyLoginFailPrefix + strings.ToLower(username)
}

func (s *AuthService) throttled(username string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.GetInt(loginFailKey(username))
	if err != nil {
		log.Printf("⚠️ Redis недоступен для лимита входа: %v", err)
		return false
	}
	return n >= int64(s.maxAttempts)
}

func (s *AuthService) recordFailure(username string) {
	if s.redis == nil {
		return
	}
	if _, err := s.redis.IncrementWindow(loginFailKey(username), s.window); err != nil {
		log.Printf("⚠️ Не удалось учесть неудачный вход %s: %v", username, err)
	}
}

// Login проверяет пароль и выдает токен
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if s.throttled(username) {
		return nil, ErrTooManyAttempts
	}

	var user models.User
	err := s.db.WithContext(ctx).Preload("Skupina").
		Where("username = ? AND is_active = ?", username, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(username)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка проверки учетных данных: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(username)
		return nil, ErrInvalidCredentials
	}

	if s.redis != nil {
		if err := s.redis.Delete(loginFailKey(username)); err != nil {
			log.Printf("⚠️ Не удалось сбросить счетчик входа %s: %v", username, err)
		}
	}

	now := s.now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).
		Update("last_login", now).Error; err != nil {
		log.Printf("⚠️ Не удалось обновить last_login %s: %v", username, err)
	}

	exp := now.Add(s.ttl)
	token, err := s.IssueToken(&user, exp)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: exp.Unix(), User: &user}, nil
}

func (s *AuthService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// IssueToken подписывает токен вида payload.signature (HMAC-SHA256)
func (s *AuthService) IssueToken(user *models.User, exp time.Time) (string, error) {
	raw, err := json.Marshal(tokenClaims{Sub: user.ID, Usr: user.Username, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), nil
}

// Authenticate проверяет токен и загружает активного пользователя с группой
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return nil, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims tokenClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if s.now().Unix() >= claims.Exp {
		return nil, fmt.Errorf("%w: platnost vypršela", ErrInvalidToken)
	}

	var user models.User
	err = s.db.WithContext(ctx).Preload("Skupina").
		Where("id = ? AND is_active = ?", claims.Sub, true).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}
