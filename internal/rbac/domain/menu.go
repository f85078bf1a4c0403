package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/warden/pkg/idx"
)

const (
	MenuTitleMaxLength = 200
	MenuIconMaxLength  = 100
)

// Menu is a console navigation entry. Entries form a tree through ParentID
// and may be guarded by a permission.
type Menu struct {
	ID           string
	Title        string
	URL          string
	Description  string
	Icon         string
	Order        int
	IsVisible    bool
	ParentID     string // empty for a root entry
	PermissionID string // empty when every signed in user may see it
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MenuInput holds the editable fields of a menu.
type MenuInput struct {
	Title        string
	URL          string
	Description  string
	Icon         string
	Order        int
	IsVisible    bool
	PermissionID string
}

func NewMenu(in MenuInput) (*Menu, error) {
	m := &Menu{ID: idx.New().String(), CreatedAt: time.Now().UTC()}
	if err := m.Update(in); err != nil {
		return nil, err
	}
	return m, nil
}

// Update replaces every editable field. Nothing changes when any field is
// invalid.
func (m *Menu) Update(in MenuInput) error {
	title, err := menuTitle(in.Title)
	if err != nil {
		return err
	}
	icon, err := menuIcon(in.Icon)
	if err != nil {
		return err
	}
	if err := validateOrder(in.Order); err != nil {
		return err
	}
	desc, err := optionalText("description", in.Description, DescriptionMaxLength)
	if err != nil {
		return err
	}

	m.Title = title
	m.URL = strings.TrimSpace(in.URL)
	m.Description = desc
	m.Icon = icon
	m.Order = in.Order
	m.IsVisible = in.IsVisible
	m.PermissionID = in.PermissionID
	m.touch()
	return nil
}

func (m *Menu) SetOrder(order int) error {
	if err := validateOrder(order); err != nil {
		return err
	}
	m.Order = order
	m.touch()
	return nil
}

func (m *Menu) SetVisibility(visible bool) {
	m.IsVisible = visible
	m.touch()
}

// SetParent moves the menu under parent, or to the root when parent is nil.
// parentAncestors lists the ids from parent up to the root and is used to
// refuse moves that would create a cycle.
func (m *Menu) SetParent(parent *Menu, parentAncestors []string) error {
	if parent == nil {
		m.ParentID = ""
		m.touch()
		return nil
	}
	if parent.ID == m.ID {
		return ErrMenuSelfParent
	}
	if slices.Contains(parentAncestors, m.ID) {
		return ErrMenuCycle
	}
	m.ParentID = parent.ID
	m.touch()
	return nil
}

func (m *Menu) touch() { m.UpdatedAt = time.Now().UTC() }

func menuTitle(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", invalid("title", "menu title is required")
	}
	if utf8.RuneCountInString(v) > MenuTitleMaxLength {
		return "", invalid("title", "menu title length must be 1-200 characters")
	}
	return v, nil
}

func menuIcon(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if utf8.RuneCountInString(v) > MenuIconMaxLength {
		return "", invalid("icon", "icon length must be 0-100 characters")
	}
	return v, nil
}

func validateOrder(order int) error {
	if order < 0 {
		return invalid("order", "order must be non-negative")
	}
	return nil
}
