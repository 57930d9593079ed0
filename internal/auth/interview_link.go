package auth

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const linkIssuer = "recruitgenius"

var ErrInvalidLink = errors.New("invalid interview link")

// InterviewClaims identify one candidate's session. They carry no other authority.
type InterviewClaims struct {
	jwt.RegisteredClaims
	CandidateID string `json:"candidate_id"`
	SessionID   string `json:"session_id"`
}

// InterviewLinks signs and verifies the tokens embedded in interview URLs.
type InterviewLinks struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func NewInterviewLinks(secret string, ttl time.Duration, baseURL string) *InterviewLinks {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InterviewLinks{
		secret:  []byte(secret),
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Issue returns a signed token and its expiry.
func (l *InterviewLinks) Issue(candidateID, sessionID string) (string, time.Time, error) {
	if candidateID == "" || sessionID == "" {
		return "", time.Time{}, errors.New("candidate_id and session_id are required")
	}
	now := l.now().UTC()
	exp := now.Add(l.ttl)

	claims := InterviewClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    linkIssuer,
			Subject:   candidateID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		CandidateID: candidateID,
		SessionID:   sessionID,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (l *InterviewLinks) Parse(raw string) (*InterviewClaims, error) {
	claims := &InterviewClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(linkIssuer),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil || tok == nil || !tok.Valid {
		return nil, ErrInvalidLink
	}
	if claims.CandidateID == "" || claims.SessionID == "" {
		return nil, ErrInvalidLink
	}
	return claims, nil
}

// URL builds the candidate-facing link for a token.
func (l *InterviewLinks) URL(token string) string {
	return l.baseURL + "/interview?token=" + url.QueryEscape(token)
}
