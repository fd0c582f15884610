package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dreamtumulus/andun/internal/model/subject"
)

var (
	ErrUnknownUser  = errors.New("unknown user")
	ErrInvalidToken = errors.New("invalid session token")
)

// Service resolves login names to identities and issues signed session
// tokens. No password check — the login contract is a plain name lookup.
type Service struct {
	users  []subject.User
	secret []byte
	ttl    time.Duration
}

// NewService builds the identity service over a fixed user roster.
func NewService(users []subject.User, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		users:  append([]subject.User(nil), users...),
		secret: []byte(secret),
		ttl:    ttl,
	}
}

type sessionClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Login resolves the username and issues a session token.
func (s *Service) Login(username string) (subject.User, string, error) {
	username = strings.TrimSpace(username)
	for _, u := range s.users {
		if u.Username == username {
			token, err := s.issue(u)
			if err != nil {
				return subject.User{}, "", err
			}
			return u, token, nil
		}
	}
	return subject.User{}, "", ErrUnknownUser
}

func (s *Service) issue(u subject.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve validates a session token and returns the authenticated identity.
func (s *Service) Resolve(tokenString string) (subject.User, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return subject.User{}, ErrInvalidToken
	}

	user, ok := s.FindUser(claims.Subject)
	if !ok {
		return subject.User{}, ErrUnknownUser
	}
	return user, nil
}

// FindUser looks an identity up by id.
func (s *Service) FindUser(id string) (subject.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return subject.User{}, false
}

// Officers returns the non-admin roster for the dashboard.
func (s *Service) Officers() []subject.User {
	officers := make([]subject.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role == subject.RoleOfficer {
			officers = append(officers, u)
		}
	}
	return officers
}
