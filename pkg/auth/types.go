package auth

import "time"

// Role is the coarse authorization level attached to a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a single account that may carry up to three credential methods:
// a wallet address proven by signature, an email/password pair, and a
// federated provider identity. At least one method is always present.
type User struct {
	ID            int64
	WalletAddress string // normalized lower-case hex, empty when no wallet is linked
	Email         string // normalized lower-case, empty when no email is linked
	PasswordHash  []byte
	EmailVerified bool
	ProviderID    string // federated subject identifier, empty when no provider is linked
	Username      string
	DisplayName   string
	AvatarURL     string
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastSignInAt  *time.Time
	DeletedAt     *time.Time
}

// HasWallet reports whether a wallet address is linked to the account.
func (u *User) HasWallet() bool {
	return u.WalletAddress != ""
}

// HasPassword reports whether the account carries an email/password credential.
func (u *User) HasPassword() bool {
	return u.Email != "" && len(u.PasswordHash) > 0
}

// HasProvider reports whether a federated provider identity is linked.
func (u *User) HasProvider() bool {
	return u.ProviderID != ""
}

// AuthMethodCount returns how many credential methods the account carries.
// Unlinking is only permitted while the count stays above one.
func (u *User) AuthMethodCount() int {
	n := 0
	if u.HasWallet() {
		n++
	}
	if u.HasPassword() {
		n++
	}
	if u.HasProvider() {
		n++
	}
	return n
}

// IsDeleted reports whether the account has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PasswordResetRequest carries the data needed to deliver a password
// reset link to the account owner.
type PasswordResetRequest struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}
