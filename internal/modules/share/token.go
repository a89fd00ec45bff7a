package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "songmail/share"

// TokenKind tells a candidate token from a saved one. It is signed, so a
// token cannot be replayed at another step.
type TokenKind string

const (
	TokenCandidate TokenKind = "candidate"
	TokenSaved     TokenKind = "saved"
)

var ErrInvalidToken = errors.New("invalid or expired share token")

// Selection is what travels between steps inside a token.
type Selection struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	SongID int64  `json:"song_id,omitempty"`
}

type tokenClaims struct {
	Stage TokenKind `json:"stage"`
	Selection
	jwt.RegisteredClaims
}

// Tokens signs and verifies share tokens (HS256).
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(kind TokenKind, sel Selection) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Stage:     kind,
		Selection: sel,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign share token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token and checks it was issued for the wanted step.
func (t *Tokens) Parse(token string, want TokenKind) (*Selection, error) {
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Stage != want {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongStage, claims.Stage, want)
	}
	if want == TokenSaved && claims.SongID <= 0 {
		return nil, ErrInvalidToken
	}

	sel := claims.Selection
	return &sel, nil
}
