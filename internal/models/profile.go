package models

import "time"

// DefaultAvatarURL is the static placeholder used when a profile has no avatar.
const DefaultAvatarURL = "/static/default-avatar.svg"

// Gender codes as stored on a profile.
const (
	GenderFemale = 0
	GenderMale   = 1
)

// Profile is the per-identity fitness record. Its ID always equals the owning
// identity's ID.
type Profile struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	Age         *float64  `json:"age" db:"age"`
	Weight      *float64  `json:"weight" db:"weight"`
	Height      *float64  `json:"height" db:"height"`
	Gender      int       `json:"gender" db:"gender"`
	Reps        int       `json:"reps" db:"reps"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	IsAdmin     bool      `json:"isAdmin" db:"is_admin"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ProfileDelta is a partial profile write. Only fields marked Set are merged.
type ProfileDelta struct {
	DisplayName Field[string]   `json:"displayName"`
	Age         Field[*float64] `json:"age"`
	Weight      Field[*float64] `json:"weight"`
	Height      Field[*float64] `json:"height"`
	Gender      Field[int]      `json:"gender"`
	Reps        Field[int]      `json:"reps"`
	AvatarURL   Field[string]   `json:"avatarUrl"`
	IsAdmin     Field[bool]     `json:"isAdmin"`
}

// DefaultProfileDelta is the record written for a freshly signed-up identity.
func DefaultProfileDelta(displayName, avatarURL string) ProfileDelta {
	if avatarURL == "" {
		avatarURL = DefaultAvatarURL
	}
	return ProfileDelta{
		DisplayName: Set(displayName),
		Age:         Set[*float64](nil),
		Weight:      Set[*float64](nil),
		Height:      Set[*float64](nil),
		Gender:      Set(GenderMale),
		Reps:        Set(0),
		AvatarURL:   Set(avatarURL),
		IsAdmin:     Set(false),
	}
}

// Empty reports whether the delta carries no fields.
func (d ProfileDelta) Empty() bool {
	return !d.DisplayName.Set && !d.Age.Set && !d.Weight.Set && !d.Height.Set &&
		!d.Gender.Set && !d.Reps.Set && !d.AvatarURL.Set && !d.IsAdmin.Set
}

// Apply merges the delta into p and returns the result.
func (d ProfileDelta) Apply(p Profile) Profile {
	if d.DisplayName.Set {
		p.DisplayName = d.DisplayName.Value
	}
	if d.Age.Set {
		p.Age = d.Age.Value
	}
	if d.Weight.Set {
		p.Weight = d.Weight.Value
	}
	if d.Height.Set {
		p.Height = d.Height.Value
	}
	if d.Gender.Set {
		p.Gender = d.Gender.Value
	}
	if d.Reps.Set {
		p.Reps = d.Reps.Value
	}
	if d.AvatarURL.Set {
		p.AvatarURL = d.AvatarURL.Value
	}
	if d.IsAdmin.Set {
		p.IsAdmin = d.IsAdmin.Value
	}
	return p
}

// SelfProfileUpdate is what a signed-in user may change on their own profile.
// The admin flag is only changed from the admin console.
type SelfProfileUpdate struct {
	DisplayName Field[string]   `json:"displayName"`
	Age         Field[*float64] `json:"age"`
	Weight      Field[*float64] `json:"weight"`
	Height      Field[*float64] `json:"height"`
	Gender      Field[int]      `json:"gender"`
	Reps        Field[int]      `json:"reps"`
	AvatarURL   Field[string]   `json:"avatarUrl"`
}

// Delta converts the update into a profile delta.
func (u SelfProfileUpdate) Delta() ProfileDelta {
	return ProfileDelta{
		DisplayName: u.DisplayName,
		Age:         u.Age,
		Weight:      u.Weight,
		Height:      u.Height,
		Gender:      u.Gender,
		Reps:        u.Reps,
		AvatarURL:   u.AvatarURL,
	}
}
