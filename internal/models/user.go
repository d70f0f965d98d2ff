package models

import "strings"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

// User is a row of the Login sheet. Users are not stored in postgres.
type User struct {
	Username     string
	Name         string
	PasswordHash string
	Role         UserRole
}

// ParseRole maps the free-text role cell of the Login sheet. Anything
// that is not "admin" is an operator.
func ParseRole(s string) UserRole {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleOperator
}
