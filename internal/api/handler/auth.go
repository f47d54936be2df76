package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/bgtwallet/bgtwallet/internal/api/middleware"
	"github.com/bgtwallet/bgtwallet/internal/api/problem"
	"github.com/golang-jwt/jwt/v5"
)

// AuthHandler mints development tokens. The platform in front of this
// service is expected to carry real authentication; this endpoint
// exists so the API is usable standalone.
type AuthHandler struct {
	issuer     string
	audience   string
	operatorID string
	tokenTTL   time.Duration
}

func NewAuthHandler(issuer, audience, operatorID string) *AuthHandler {
	return &AuthHandler{
		issuer:     issuer,
		audience:   audience,
		operatorID: operatorID,
		tokenTTL:   24 * time.Hour,
	}
}

type tokenRequest struct {
	AccountID string `json:"account_id"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expires_at"`
}

// Token issues a signed token for the given account. The operator
// account receives the operator role; everyone else is a user.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.AccountID = strings.TrimSpace(req.AccountID)
	if req.AccountID == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.Type("auth/account-id-required"), "", "account_id is required")
		return
	}

	role := "user"
	if req.AccountID == h.operatorID {
		role = middleware.RoleOperator
	}

	now := time.Now()
	expiresAt := now.Add(h.tokenTTL)
	claims := jwt.MapClaims{
		"account_id": req.AccountID,
		"role":       role,
		"sub":        req.AccountID,
		"iss":        h.issuer,
		"aud":        h.audience,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.JWTSecret())
	if err != nil {
		RespondError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, tokenResponse{
		Token:     signed,
		Role:      role,
		ExpiresAt: expiresAt.Unix(),
	})
}
