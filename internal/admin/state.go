package admin

import (
	"strings"

	"github.com/illegalcall/fittrack/internal/models"
)

// State is an immutable snapshot of what the console shows. Every reducer
// returns a new snapshot and leaves the receiver untouched.
type State struct {
	users  []models.Profile
	tips   []models.Tip
	filter string
}

func NewState(users []models.Profile, tips []models.Tip) State {
	return State{}.WithUsers(users).WithTips(tips)
}

func (s State) Users() []models.Profile { return append([]models.Profile(nil), s.users...) }
func (s State) Tips() []models.Tip      { return append([]models.Tip(nil), s.tips...) }
func (s State) Filter() string          { return s.filter }

func (s State) WithUsers(users []models.Profile) State {
	s.users = append([]models.Profile(nil), users...)
	return s
}

func (s State) WithTips(tips []models.Tip) State {
	s.tips = append([]models.Tip(nil), tips...)
	return s
}

func (s State) WithFilter(q string) State {
	s.filter = q
	return s
}

// User looks up a cached profile.
func (s State) User(id string) (models.Profile, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.Profile{}, false
}

// WithAdmin sets the cached admin flag of id.
func (s State) WithAdmin(id string, isAdmin bool) State {
	users := make([]models.Profile, len(s.users))
	for i, u := range s.users {
		if u.ID == id {
			u.IsAdmin = isAdmin
		}
		users[i] = u
	}
	s.users = users
	return s
}

func (s State) WithoutUser(id string) State {
	users := make([]models.Profile, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != id {
			users = append(users, u)
		}
	}
	s.users = users
	return s
}

func (s State) WithoutTip(id string) State {
	tips := make([]models.Tip, 0, len(s.tips))
	for _, t := range s.tips {
		if t.ID != id {
			tips = append(tips, t)
		}
	}
	s.tips = tips
	return s
}

// Visible is the user list after applying the filter: a case-insensitive
// substring match over display name and id.
func (s State) Visible() []models.Profile {
	q := strings.ToLower(strings.TrimSpace(s.filter))
	if q == "" {
		return s.Users()
	}
	var out []models.Profile
	for _, u := range s.users {
		if strings.Contains(strings.ToLower(u.DisplayName), q) || strings.Contains(strings.ToLower(u.ID), q) {
			out = append(out, u)
		}
	}
	return out
}
