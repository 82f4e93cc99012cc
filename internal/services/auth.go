package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sjwg/reporter-backend/internal/data/repos"
	"github.com/sjwg/reporter-backend/internal/domain"
	"github.com/sjwg/reporter-backend/internal/platform/apierr"
	"github.com/sjwg/reporter-backend/internal/platform/logger"
	"github.com/sjwg/reporter-backend/internal/requestdata"
)

const minPasswordLength = 12

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type JWTClaims struct {
	TokenType string `json:"token_type"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (*domain.User, error)
	LoginUser(ctx context.Context, email, password string) (*TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.BadRequest("INVALID_EMAIL", fmt.Errorf("a valid email is required"))
	}
	if vErr := validatePassword(password); vErr != nil {
		return nil, vErr
	}

	exists, exErr := as.userRepo.EmailExists(ctx, nil, email)
	if exErr != nil {
		return nil, fmt.Errorf("check email: %w", exErr)
	}
	if exists {
		return nil, apierr.BadRequest("EMAIL_TAKEN", fmt.Errorf("email already registered"))
	}

	hashed, hErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hErr != nil {
		return nil, fmt.Errorf("hash password: %w", hErr)
	}

	user := &domain.User{
		Email:    email,
		Password: string(hashed),
		IsActive: true,
	}
	if err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return as.userRepo.Create(ctx, tx, user)
	}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	as.log.Info("registered user", "userID", user.ID)
	return user, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, uErr := as.userRepo.GetByEmail(ctx, nil, email)
	if uErr != nil {
		return nil, fmt.Errorf("load user: %w", uErr)
	}
	if user == nil || !user.IsActive {
		return nil, apierr.Unauthorized("INVALID_CREDENTIALS", fmt.Errorf("invalid email or password"))
	}
	if cErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cErr != nil {
		return nil, apierr.Unauthorized("INVALID_CREDENTIALS", fmt.Errorf("invalid email or password"))
	}

	return as.issueTokens(user)
}

func (as *authService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, cErr := as.parseToken(refreshToken)
	if cErr != nil {
		return nil, apierr.Unauthorized("INVALID_TOKEN", cErr)
	}
	if claims.TokenType != "refresh" {
		return nil, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("not a refresh token"))
	}

	userID, pErr := strconv.ParseUint(claims.Subject, 10, 64)
	if pErr != nil {
		return nil, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("invalid subject: %w", pErr))
	}
	user, uErr := as.userRepo.GetByID(ctx, nil, uint(userID))
	if uErr != nil {
		return nil, fmt.Errorf("load user: %w", uErr)
	}
	if user == nil || !user.IsActive {
		return nil, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("unknown or inactive user"))
	}

	return as.issueTokens(user)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims, cErr := as.parseToken(tokenString)
	if cErr != nil {
		return ctx, apierr.Unauthorized("INVALID_TOKEN", cErr)
	}
	if claims.TokenType != "access" {
		return ctx, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("not an access token"))
	}

	userID, pErr := strconv.ParseUint(claims.Subject, 10, 64)
	if pErr != nil {
		return ctx, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("invalid subject: %w", pErr))
	}
	user, uErr := as.userRepo.GetByID(ctx, nil, uint(userID))
	if uErr != nil {
		return ctx, fmt.Errorf("load user: %w", uErr)
	}
	if user == nil || !user.IsActive {
		return ctx, apierr.Unauthorized("INVALID_TOKEN", fmt.Errorf("unknown or inactive user"))
	}

	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      user.ID,
		UserEmail:   user.Email,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) issueTokens(user *domain.User) (*TokenPair, error) {
	access, aErr := as.signToken(user, "access", as.accessTTL)
	if aErr != nil {
		return nil, fmt.Errorf("sign access token: %w", aErr)
	}
	refresh, rErr := as.signToken(user, "refresh", as.refreshTTL)
	if rErr != nil {
		return nil, fmt.Errorf("sign refresh token: %w", rErr)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (as *authService) signToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		TokenType: tokenType,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) parseToken(tokenString string) (*JWTClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	return claims, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apierr.BadRequest("WEAK_PASSWORD",
			fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	hasSpecial := false
	for _, r := range password {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return apierr.BadRequest("WEAK_PASSWORD",
			fmt.Errorf("password must contain at least one special character"))
	}
	return nil
}
