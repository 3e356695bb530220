package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkIssuer mints and verifies signer-scoped signing links. A token binds
// one signer to one document; it grants nothing else.
type LinkIssuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
}

// NewLinkIssuer creates an issuer. baseURL is the public address the signing
// UI is reachable at.
func NewLinkIssuer(secret string, ttl time.Duration, baseURL string) *LinkIssuer {
	return &LinkIssuer{secret: []byte(secret), ttl: ttl, baseURL: baseURL}
}

type linkClaims struct {
	DocumentID string `json:"docId"`
	SignerID   string `json:"signerId"`
	jwt.RegisteredClaims
}

// Token mints a signer-scoped token.
func (l *LinkIssuer) Token(documentID, signerID string) (string, error) {
	claims := linkClaims{
		DocumentID: documentID,
		SignerID:   signerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(l.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign link token: %w", err)
	}
	return signed, nil
}

// URL mints the full signing link embedded in invitation mail.
func (l *LinkIssuer) URL(documentID, signerID string) (string, error) {
	token, err := l.Token(documentID, signerID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/sign/%s?token=%s", l.baseURL, documentID, token), nil
}

// Verify parses a token and returns the document and signer it is scoped to.
func (l *LinkIssuer) Verify(token string) (documentID, signerID string, err error) {
	var claims linkClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return l.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("invalid link token: %w", err)
	}
	if !parsed.Valid || claims.DocumentID == "" || claims.SignerID == "" {
		return "", "", fmt.Errorf("invalid link token")
	}
	return claims.DocumentID, claims.SignerID, nil
}
