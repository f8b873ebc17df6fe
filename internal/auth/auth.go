// internal/auth/auth.go
//
// Player accounts so results can be attributed to someone.
// Responsibilities:
//   - Signup/login with bcrypt password hashes (players table).
//   - HS256 JWT issue/verify carrying the player id and username.
//
// Guests never need an account; the HTTP layer treats auth as optional.

package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Player is the public view of an account.
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service issues and checks player credentials.
type Service struct {
	db     *sql.DB
	secret []byte
	ttl    time.Duration
}

// NewService builds a Service; ttl <= 0 defaults to 14 days.
func NewService(db *sql.DB, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Service{db: db, secret: []byte(secret), ttl: ttl}
}

// Signup validates input, hashes the password, and inserts a new player.
func (s *Service) Signup(ctx context.Context, username, pw string) (*Player, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE username=?`, username).Scan(&exists)
	if exists == 1 {
		return nil, ErrUsernameTaken
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &Player{ID: genID(), Username: username, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO players (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		p.ID, p.Username, string(h), p.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}
	return p, nil
}

// Login checks a username/password pair.
func (s *Service) Login(ctx context.Context, username, pw string) (*Player, error) {
	var (
		p       Player
		hash    string
		created string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM players WHERE username=?`,
		strings.TrimSpace(username)).Scan(&p.ID, &p.Username, &hash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// Sign creates an HS256 JWT with id/username and the configured expiry.
func (s *Service) Sign(p *Player) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       p.ID,
		"username": p.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// Verify parses a token and returns the player it names.
func (s *Service) Verify(token string) (*Player, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, ErrInvalidToken
	}
	return &Player{ID: id, Username: username}, nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3–24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return errors.New("password must be 8–72 chars")
	}
	return nil
}

// genID creates a 22‑char URL‑safe, crypto‑random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
