package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rksaklani/pgimer-psy-sub000/internal/config"
	"github.com/rksaklani/pgimer-psy-sub000/internal/models"
)

var (
	// ErrTokenExpired means the token was well-formed and correctly signed but
	// its validity window has passed. Clients holding a live refresh session
	// should silently refresh rather than re-authenticate.
	ErrTokenExpired = errors.New("access token expired")
	ErrTokenInvalid = errors.New("invalid access token")
)

type AccessClaims struct {
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenService mints and validates short-lived stateless access tokens. It
// keeps no storage; everything the middleware needs rides in the claims.
type TokenService struct {
	cfg *config.Config
}

func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{cfg: cfg}
}

func (s *TokenService) Issue(user *models.User) (string, error) {
	accessTTL, err := s.cfg.JWT.GetAccessTokenExpiry()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWT.Secret))
}

func (s *TokenService) Parse(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
