// Package navigation holds the role-gated dashboard menu.
package navigation

import (
	"errors"
	"sync"

	"saral/pkg/domain"
)

// ErrPanelNotAllowed is returned when a role selects a panel outside its menu.
var ErrPanelNotAllowed = errors.New("panel not available for this role")

var (
	officerMenu = []domain.NavItem{
		{ID: domain.PanelDashboard, Label: "Dashboard"},
		{ID: domain.PanelAskSaral, Label: "Ask SARAL"},
		{ID: domain.PanelAddData, Label: "Add Data"},
		{ID: domain.PanelHistory, Label: "History"},
		{ID: domain.PanelSettings, Label: "Settings"},
	}
	userMenu = []domain.NavItem{
		{ID: domain.PanelAskSaral, Label: "Ask SARAL"},
	}
)

// Menu returns the navigation items for role.
func Menu(role domain.UserRole) []domain.NavItem {
	src := userMenu
	if role == domain.RoleOfficer {
		src = officerMenu
	}
	return append([]domain.NavItem(nil), src...)
}

// DefaultPanel is the panel shown right after sign-in.
func DefaultPanel(role domain.UserRole) domain.Panel {
	if role == domain.RoleOfficer {
		return domain.PanelDashboard
	}
	return domain.PanelAskSaral
}

// PortalLabel names the portal in the sidebar.
func PortalLabel(role domain.UserRole) string {
	if role == domain.RoleOfficer {
		return "Officer Portal"
	}
	return "User Portal"
}

// Allowed reports whether panel is in role's menu.
func Allowed(role domain.UserRole, panel domain.Panel) bool {
	for _, item := range Menu(role) {
		if item.ID == panel {
			return true
		}
	}
	return false
}

// State is the active-panel state machine for one signed-in user.
type State struct {
	mu     sync.Mutex
	role   domain.UserRole
	active domain.Panel
}

// NewState starts on the role's default panel.
func NewState(role domain.UserRole) *State {
	return &State{role: role, active: DefaultPanel(role)}
}

// Active returns the current panel.
func (s *State) Active() domain.Panel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Select switches the active panel.
func (s *State) Select(panel domain.Panel) error {
	if !Allowed(s.role, panel) {
		return ErrPanelNotAllowed
	}
	s.mu.Lock()
	s.active = panel
	s.mu.Unlock()
	return nil
}
