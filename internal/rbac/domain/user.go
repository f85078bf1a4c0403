package domain

import (
	"time"

	"github.com/aussiebroadwan/warden/pkg/idx"
)

// User is an account that can sign in to the console. Users are never
// deleted, only deactivated.
type User struct {
	ID        string
	Username  Username
	Email     Email
	IsActive  bool
	Roles     []UserRole
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	eventLog
}

// NewUser creates an active user with no roles.
func NewUser(username, email string) (*User, error) {
	un, err := NewUsername(username)
	if err != nil {
		return nil, err
	}
	em, err := NewEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		ID:        idx.New().String(),
		Username:  un,
		Email:     em,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) Activate() {
	if u.IsActive {
		return
	}
	u.IsActive = true
	u.touch()
}

// Deactivate disables sign in and raises UserDeactivated when the user was
// active.
func (u *User) Deactivate() {
	if !u.IsActive {
		return
	}
	u.IsActive = false
	u.touch()
	u.raise(UserDeactivated{UserID: u.ID, Username: u.Username.String(), At: u.UpdatedAt})
}

func (u *User) UpdateEmail(raw string) error {
	em, err := NewEmail(raw)
	if err != nil {
		return err
	}
	u.Email = em
	u.touch()
	return nil
}

func (u *User) UpdateUsername(raw string) error {
	un, err := NewUsername(raw)
	if err != nil {
		return err
	}
	u.Username = un
	u.touch()
	return nil
}

// HasRole reports whether the user holds roleID.
func (u *User) HasRole(roleID string) bool {
	for _, l := range u.Roles {
		if l.RoleID == roleID {
			return true
		}
	}
	return false
}

// AssignRole links role to the user. It returns false without changes when
// the link already exists.
func (u *User) AssignRole(role *Role) bool {
	if u.HasRole(role.ID) {
		return false
	}
	u.Roles = append(u.Roles, NewUserRole(u, role))
	u.touch()
	return true
}

// RemoveRole drops the link to roleID. It returns false when there was none.
func (u *User) RemoveRole(roleID string) bool {
	for i, l := range u.Roles {
		if l.RoleID == roleID {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			u.touch()
			return true
		}
	}
	return false
}

func (u *User) RoleIDs() []string {
	ids := make([]string, 0, len(u.Roles))
	for _, l := range u.Roles {
		ids = append(ids, l.RoleID)
	}
	return ids
}

func (u *User) touch() { u.UpdatedAt = time.Now().UTC() }
