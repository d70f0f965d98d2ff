package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/models"
	"o2d-backend/internal/sheets"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Login sheet columns
const (
	colUsername = 0
	colPassword = 1
	colRole     = 2
	colName     = 3
)

// Directory looks users up in the Login sheet. The first row is the
// header.
type Directory struct {
	source sheets.Reader
	sheet  string
}

func NewDirectory(source sheets.Reader, sheet string) *Directory {
	return &Directory{source: source, sheet: sheet}
}

func (d *Directory) Users(ctx context.Context) ([]models.User, error) {
	rows, err := d.source.Fetch(ctx, d.sheet)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", d.sheet, err)
	}
	return ParseUsers(rows), nil
}

// ParseUsers maps Login sheet rows, skipping the header and rows without
// a username.
func ParseUsers(rows [][]any) []models.User {
	users := []models.User{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		username := dispatch.CellAt(row, colUsername)
		if username == "" {
			continue
		}
		name := dispatch.CellAt(row, colName)
		if name == "" {
			name = username
		}
		users = append(users, models.User{
			Username:     username,
			Name:         name,
			PasswordHash: dispatch.CellAt(row, colPassword),
			Role:         models.ParseRole(dispatch.CellAt(row, colRole)),
		})
	}
	return users
}

// Authenticate returns the user whose username (case-insensitive) and
// password match.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	users, err := d.Users(ctx)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	for i := range users {
		if !strings.EqualFold(users[i].Username, username) {
			continue
		}
		if CheckPassword(users[i].PasswordHash, password) {
			return &users[i], nil
		}
		return nil, ErrInvalidCredentials
	}
	return nil, ErrInvalidCredentials
}

// CheckPassword accepts bcrypt hashes and, for sheets that still hold
// them, plain-text passwords.
func CheckPassword(stored, password string) bool {
	if stored == "" || password == "" {
		return false
	}
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
