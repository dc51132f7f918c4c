package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"toolcrib-backend/internal/platform/apperr"
)

type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleUser          Role = "User"
)

func (r Role) Valid() bool { return r == RoleAdministrator || r == RoleUser }

// Identity は検証済みトークンから取り出した呼び出し元。
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdministrator }

type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens は HS256 の発行と検証。
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(userID int64, role Role) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func (t *Tokens) Verify(tokenStr string) (Identity, error) {
	var claims Claims
	// alg 固定（none攻撃とか回避）
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || token == nil || !token.Valid {
		return Identity{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, errors.New("invalid sub")
	}
	if !claims.Role.Valid() {
		return Identity{}, errors.New("invalid role")
	}
	return Identity{UserID: id, Role: claims.Role}, nil
}

type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Guard は認証と認可をひとまとめにしたもの。全ルートで同じものを使う。
type Guard struct {
	verifier TokenVerifier
}

func NewGuard(v TokenVerifier) *Guard { return &Guard{verifier: v} }

// Authenticate: Authorization: Bearer <token>
func (g *Guard) Authenticate(r *http.Request) (Identity, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return Identity{}, apperr.Unauthenticated("missing Authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Identity{}, apperr.Unauthenticated("invalid Authorization header")
	}
	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return Identity{}, apperr.Unauthenticated("empty token")
	}
	id, err := g.verifier.Verify(tokenStr)
	if err != nil {
		return Identity{}, apperr.Unauthenticated("invalid token")
	}
	return id, nil
}

func (g *Guard) Authorize(id Identity, roles ...Role) error {
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("insufficient role")
}
