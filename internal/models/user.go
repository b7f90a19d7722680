// Package models contains data structures for the application's domain models.
package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AuthProvider identifies how a user authenticates.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// ErrAccountInconsistent is returned when the stored credential fields do not
// match the auth provider.
var ErrAccountInconsistent = errors.New("account credentials do not match auth provider")

// User represents a registered account.
// The credential columns are flat for storage; use Account to work with them.
type User struct {
	ID           string       `gorm:"primaryKey;size:24" bson:"_id" json:"id"`
	FullName     string       `gorm:"size:100;not null" bson:"fullName" json:"fullName"`
	Email        string       `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	MobileNumber string       `gorm:"size:10" bson:"mobileNumber,omitempty" json:"mobileNumber,omitempty"`
	PasswordHash string       `gorm:"column:password_hash" bson:"passwordHash,omitempty" json:"-"`
	GoogleID     *string      `gorm:"column:google_id;uniqueIndex;size:64" bson:"googleId,omitempty" json:"-"`
	AuthProvider AuthProvider `gorm:"size:16;not null;default:local" bson:"authProvider" json:"authProvider"`
	Role         Role         `gorm:"size:16;not null;default:user;index" bson:"role" json:"role"`
	ProfileImage string       `gorm:"size:1024" bson:"profileImage" json:"profileImage"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// BeforeCreate assigns an object id when none is set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// Account is either a LocalAccount or a FederatedAccount.
type Account interface {
	provider() AuthProvider
}

// LocalAccount authenticates with an email and a bcrypt password hash.
type LocalAccount struct {
	PasswordHash string
}

func (LocalAccount) provider() AuthProvider { return ProviderLocal }

// FederatedAccount authenticates through an external identity provider.
type FederatedAccount struct {
	Provider AuthProvider
	Subject  string
}

func (a FederatedAccount) provider() AuthProvider { return a.Provider }

// Profile holds the display fields of a new user.
type Profile struct {
	FullName     string
	Email        string
	MobileNumber string
	ProfileImage string
	Role         Role
}

// NewUser builds a user whose credential fields are derived from account.
func NewUser(p Profile, account Account) (*User, error) {
	role := p.Role
	if role == "" {
		role = RoleUser
	}
	u := &User{
		FullName:     strings.TrimSpace(p.FullName),
		Email:        NormalizeEmail(p.Email),
		MobileNumber: strings.TrimSpace(p.MobileNumber),
		ProfileImage: p.ProfileImage,
		Role:         role,
	}

	switch a := account.(type) {
	case LocalAccount:
		if a.PasswordHash == "" {
			return nil, ErrAccountInconsistent
		}
		u.AuthProvider = ProviderLocal
		u.PasswordHash = a.PasswordHash
	case FederatedAccount:
		if a.Subject == "" || a.Provider == "" || a.Provider == ProviderLocal {
			return nil, ErrAccountInconsistent
		}
		subject := a.Subject
		u.AuthProvider = a.Provider
		u.GoogleID = &subject
	default:
		return nil, ErrAccountInconsistent
	}
	return u, nil
}

// Account returns the credential variant stored on the user.
func (u *User) Account() (Account, error) {
	switch u.AuthProvider {
	case ProviderLocal, "":
		if u.PasswordHash == "" || u.GoogleID != nil {
			return nil, ErrAccountInconsistent
		}
		return LocalAccount{PasswordHash: u.PasswordHash}, nil
	default:
		if u.GoogleID == nil || *u.GoogleID == "" || u.PasswordHash != "" {
			return nil, ErrAccountInconsistent
		}
		return FederatedAccount{Provider: u.AuthProvider, Subject: *u.GoogleID}, nil
	}
}

// Author is the public display projection of a user.
type Author struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage"`
}

// AuthorView returns the public projection, optionally including the email.
func (u *User) AuthorView(withEmail bool) *Author {
	a := &Author{ID: u.ID, FullName: u.FullName, ProfileImage: u.ProfileImage}
	if withEmail {
		a.Email = u.Email
	}
	return a
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
