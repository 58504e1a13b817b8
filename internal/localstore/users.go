package localstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rpggio/statuspage/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// MinAdminPasswordLength is the shortest accepted initial admin password.
const MinAdminPasswordLength = 12

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// InitialAdmin describes the account seeded into a dataset without users.
type InitialAdmin struct {
	Email      string
	Password   string
	BcryptCost int
}

// IsValidEmail reports whether value looks like an email address.
func IsValidEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

// ensureInitialUsers seeds the initial admin when the dataset has no users
// and a usable email/password pair is configured. It reports whether a user
// was added.
func ensureInitialUsers(d *model.Dataset, admin InitialAdmin, now string) (bool, error) {
	if len(d.Users) > 0 {
		return false, nil
	}
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return false, nil
	}
	if !IsValidEmail(email) || len(admin.Password) < MinAdminPasswordLength {
		return false, nil
	}

	cost := admin.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), cost)
	if err != nil {
		return false, fmt.Errorf("hashing initial admin password: %w", err)
	}
	d.Users = append(d.Users, &model.User{
		ID:           1,
		Username:     email,
		Email:        email,
		Name:         "Initial Admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		CreatedAt:    now,
	})
	return true, nil
}
