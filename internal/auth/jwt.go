package auth

import (
	"errors"
	"time"

	"society-billing/internal/config"
	"society-billing/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Capabilities checked by the billing API
const (
	CapBillingGenerate = "billing.generate"
	CapPaymentsRecord  = "payments.record"
	CapPaymentsRefund  = "payments.refund"
	CapReportsView     = "reports.view"
)

// AllCapabilities is what an administrator token carries
var AllCapabilities = []string{CapBillingGenerate, CapPaymentsRecord, CapPaymentsRefund, CapReportsView}

type Claims struct {
	UserID       int64    `json:"user_id"`
	SocietyID    int64    `json:"society_id"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// Can reports whether the token grants a capability
func (c *Claims) Can(capability string) bool {
	for _, have := range c.Capabilities {
		if have == capability {
			return true
		}
	}
	return false
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken signs a token scoped to one society
func (j *JWTManager) GenerateToken(userID, societyID int64, capabilities []string) (string, error) {
	now := timeutil.Now()
	expirationTime := now.Add(time.Duration(j.cfg.JWT.ExpirationHours) * time.Hour)

	claims := &Claims{
		UserID:       userID,
		SocietyID:    societyID,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.SocietyID == 0 {
		return nil, errors.New("token has no society scope")
	}

	return claims, nil
}
