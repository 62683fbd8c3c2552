package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/quota"
	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/session"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidGender      = errors.New("gender must be male, female or nonbinary")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	sessions *session.Manager
}

func NewAuthService(db *gorm.DB, cfg *config.Config, sessions *session.Manager) *AuthService {
	return &AuthService{db: db, cfg: cfg, sessions: sessions}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || len(req.Password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}
	gender := quota.GenderMale
	if req.Gender != "" {
		g, ok := quota.ParseGender(req.Gender)
		if !ok {
			return nil, ErrInvalidGender
		}
		gender = g
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:       email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Gender:      string(gender),
		Role:        "user",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.sessions != nil {
		err := s.sessions.Update(ctx, user.ID.String(), func(st *session.State) error {
			st.SetGender(gender)
			return nil
		})
		if err != nil {
			slog.Error("failed to seed session", "user_id", user.ID.String(), "error", err)
		}
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.generateTokenPair(ctx, &user)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", hashToken(req.RefreshToken), false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	db.Model(&stored).Update("revoked", true)
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

// DeleteAccount removes the user, their rows and their session state.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	if password == "" {
		return errors.New("password is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{})
		tx.Where("user_id = ?", userID).Delete(&models.Subscription{})
		tx.Where("reporter_id = ?", userID).Delete(&models.Report{})
		tx.Where("blocker_id = ? OR blocked_id = ?", userID, userID).Delete(&models.Block{})
		return tx.Delete(&user).Error
	})
	if err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, userID.String()); err != nil {
			slog.Error("failed to delete session", "user_id", userID.String(), "error", err)
		}
	}
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: dto.UserResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Gender:      user.Gender,
		},
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":    user.ID.String(),
		"email":  user.Email,
		"name":   user.DisplayName,
		"gender": user.Gender,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
