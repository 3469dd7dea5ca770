package domain

import (
	"strings"
	"time"

	apperrors "github.com/pilahub/queue-backend/internal/core/errors"
)

// ServiceIcons is the closed set of symbolic icon identifiers clients may
// render for a service type.
var ServiceIcons = []string{
	"cash-outline",
	"help-circle-outline",
	"cube-outline",
	"document-text-outline",
	"construct-outline",
	"medkit-outline",
	"clipboard-outline",
	"ticket-outline",
	"call-outline",
	"checkmark-circle-outline",
	"refresh-outline",
	"person-outline",
}

// ServiceColors is the fixed palette a service type may use.
var ServiceColors = []string{
	"#10B981", "#3B82F6", "#F59E0B", "#EF4444",
	"#8B5CF6", "#EC4899", "#14B8A6", "#6366F1",
}

// ServiceType is a named category tickets may optionally belong to.
type ServiceType struct {
	ID    int64
	Name  string
	Icon  string
	Color string
	// Position defines display and assignment order. It is assigned as
	// catalog-length+1 on creation and never renumbered on deletion.
	Position  int
	CreatedAt time.Time
}

// NewServiceType validates and builds a catalog entry. Position is assigned
// by the caller from the current catalog size.
func NewServiceType(name, icon, color string, position int) (*ServiceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrServiceNameRequired
	}
	if !ValidServiceIcon(icon) {
		return nil, apperrors.ErrInvalidServiceIcon
	}
	if !ValidServiceColor(color) {
		return nil, apperrors.ErrInvalidServiceColor
	}
	return &ServiceType{
		Name:      name,
		Icon:      icon,
		Color:     color,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ValidServiceIcon reports whether the icon belongs to the closed set.
func ValidServiceIcon(icon string) bool {
	for _, i := range ServiceIcons {
		if i == icon {
			return true
		}
	}
	return false
}

// ValidServiceColor reports whether the color belongs to the fixed palette.
func ValidServiceColor(color string) bool {
	for _, c := range ServiceColors {
		if c == color {
			return true
		}
	}
	return false
}
