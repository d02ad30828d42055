package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultIssuer is the iss claim of every token minted by this service.
	DefaultIssuer = "go-brokerage-crm"

	// DefaultTTL is the absolute session lifetime.
	DefaultTTL = 30 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrEmptySecret  = errors.New("signing secret is empty")
)

// SessionClaims represents the JWT claims of a login session.
type SessionClaims struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	SecondaryRole string `json:"secondary_role,omitempty"`
	Department    string `json:"department,omitempty"`
	Designation   string `json:"designation,omitempty"`
	jwt.RegisteredClaims
}

// ActiveRoleClaims carries the persisted active-role selection.
type ActiveRoleClaims struct {
	ActiveRole string `json:"active_role"`
	jwt.RegisteredClaims
}

// Signer signs and parses HS256 tokens with a shared secret.
type Signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer. A zero ttl selects DefaultTTL.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), issuer: DefaultIssuer, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source; used by tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// Now returns the signer's current time.
func (s *Signer) Now() time.Time {
	return s.now()
}

// IssueSession signs claims for subject and stamps iss/sub/iat/exp.
func (s *Signer) IssueSession(subject string, claims SessionClaims) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseSession validates a session token. Every failure collapses to ErrInvalidToken.
func (s *Signer) ParseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil || len(claims.Audience) > 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueActiveRole signs the active-role selection of subject. It shares the
// session lifetime so a stale selection never outlives the session it belongs to.
func (s *Signer) IssueActiveRole(subject, activeRole string) (string, error) {
	now := s.now()
	claims := ActiveRoleClaims{
		ActiveRole: activeRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"active-role"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseActiveRole validates an active-role token.
func (s *Signer) ParseActiveRole(tokenString string) (*ActiveRoleClaims, error) {
	claims := &ActiveRoleClaims{}
	if err := s.parse(tokenString, claims, jwt.WithAudience("active-role")); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) parse(tokenString string, claims jwt.Claims, extra ...jwt.ParserOption) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ErrMissingToken
	}
	opts := append([]jwt.ParserOption{
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}, extra...)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
