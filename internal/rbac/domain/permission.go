package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/warden/pkg/idx"
)

const PermissionCodeMaxLength = 200

// Permission is a grantable capability identified by a code such as
// "users.read".
type Permission struct {
	ID          string
	Code        string
	Description string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewPermission(code, description string) (*Permission, error) {
	c, err := permissionCode(code)
	if err != nil {
		return nil, err
	}
	d, err := optionalText("description", description, DescriptionMaxLength)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Permission{
		ID:          idx.New().String(),
		Code:        c,
		Description: d,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Permission) Rename(code string) error {
	c, err := permissionCode(code)
	if err != nil {
		return err
	}
	p.Code = c
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Permission) UpdateDescription(description string) error {
	d, err := optionalText("description", description, DescriptionMaxLength)
	if err != nil {
		return err
	}
	p.Description = d
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func permissionCode(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", invalid("code", "permission code is required")
	}
	if utf8.RuneCountInString(v) > PermissionCodeMaxLength {
		return "", invalid("code", "permission code must be at most 200 characters")
	}
	return v, nil
}
