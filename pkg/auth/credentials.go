package auth

import (
	"errors"
	"fmt"
	"strings"

	"saral/pkg/domain"
)

// ErrInvalidCredentials is returned for any email/password pair not in the table.
var ErrInvalidCredentials = errors.New("Invalid email or password")

// Authenticator resolves an email/password pair to a user.
type Authenticator interface {
	Authenticate(email, password string) (domain.User, error)
}

// Account is a plaintext demo account used to build a CredentialTable.
type Account struct {
	Email    string          `yaml:"email"`
	Password string          `yaml:"password"`
	Name     string          `yaml:"name"`
	Role     domain.UserRole `yaml:"role"`
}

// DemoAccounts are the two built-in sign-in records.
func DemoAccounts() []Account {
	return []Account{
		{Email: "officer@mail.gov.in", Password: "officer123", Name: "Officer Singh", Role: domain.RoleOfficer},
		{Email: "user@mail.in", Password: "user123", Name: "User Singh", Role: domain.RoleUser},
	}
}

type credential struct {
	user domain.User
	hash string
}

// CredentialTable matches emails exactly (case-sensitive) and checks
// passwords against bcrypt hashes.
type CredentialTable struct {
	byEmail map[string]credential
}

// ValidateAccounts checks required fields, roles and duplicate emails.
func ValidateAccounts(accounts []Account) error {
	seen := make(map[string]bool, len(accounts))
	for _, acc := range accounts {
		if acc.Email == "" || acc.Password == "" {
			return errors.New("account email and password required")
		}
		if acc.Role != domain.RoleOfficer && acc.Role != domain.RoleUser {
			return fmt.Errorf("account %s: unknown role %q", acc.Email, acc.Role)
		}
		if seen[acc.Email] {
			return fmt.Errorf("duplicate account %s", acc.Email)
		}
		seen[acc.Email] = true
	}
	return nil
}

// NewCredentialTable validates the accounts and hashes every password.
func NewCredentialTable(accounts []Account) (*CredentialTable, error) {
	if err := ValidateAccounts(accounts); err != nil {
		return nil, err
	}
	table := &CredentialTable{byEmail: make(map[string]credential, len(accounts))}
	for _, acc := range accounts {
		hash, err := HashPassword(acc.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", acc.Email, err)
		}
		table.byEmail[acc.Email] = credential{
			user: domain.User{Name: strings.TrimSpace(acc.Name), Email: acc.Email, Role: acc.Role},
			hash: hash,
		}
	}
	return table, nil
}

// Authenticate returns the matching user or ErrInvalidCredentials.
func (t *CredentialTable) Authenticate(email, password string) (domain.User, error) {
	cred, ok := t.byEmail[email]
	if !ok || !CheckPassword(password, cred.hash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return cred.user, nil
}

// Lookup returns the user for email without checking a password.
func (t *CredentialTable) Lookup(email string) (domain.User, bool) {
	cred, ok := t.byEmail[email]
	return cred.user, ok
}
