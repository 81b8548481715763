// Package user owns HitchPath identities: credentials, display data and the
// learning preferences that drive path generation.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LearningStyle is how the user prefers to take in material.
type LearningStyle string

// Learning styles.
const (
	StyleVisual      LearningStyle = "visual"
	StyleAuditory    LearningStyle = "auditory"
	StyleReading     LearningStyle = "reading"
	StyleKinesthetic LearningStyle = "kinesthetic"
)

// Valid reports whether s is a known learning style.
func (s LearningStyle) Valid() bool {
	switch s {
	case StyleVisual, StyleAuditory, StyleReading, StyleKinesthetic:
		return true
	}
	return false
}

// Pace is the preferred speed of learning.
type Pace string

// Paces.
const (
	PaceFast     Pace = "fast"
	PaceModerate Pace = "moderate"
	PaceSlow     Pace = "slow"
)

// Valid reports whether p is a known pace.
func (p Pace) Valid() bool {
	switch p {
	case PaceFast, PaceModerate, PaceSlow:
		return true
	}
	return false
}

// SkillLevel is the user's self-assessed level in their career path.
type SkillLevel string

// Skill levels.
const (
	LevelBeginner     SkillLevel = "beginner"
	LevelIntermediate SkillLevel = "intermediate"
	LevelAdvanced     SkillLevel = "advanced"
)

// Valid reports whether l is a known skill level.
func (l SkillLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Preferences are the inputs to main-path generation and chatbot context.
type Preferences struct {
	LearningStyle   LearningStyle
	Pace            Pace
	CareerPath      string
	SkillLevel      SkillLevel
	DesiredSkill    string
	PrimaryLanguage string
	ShortTermGoals  string
	LongTermGoals   string
}

// DefaultPreferences returns the preferences of a freshly registered user.
func DefaultPreferences() Preferences {
	return Preferences{
		LearningStyle: StyleVisual,
		Pace:          PaceModerate,
		SkillLevel:    LevelBeginner,
	}
}

// User is a registered account.
type User struct {
	// ID has the form usr_XXXX.
	ID    string
	Email string

	// PasswordHash is nil for accounts created through Google sign-in.
	PasswordHash *string
	GoogleSub    *string

	Name        string
	IsAdmin     bool
	Preferences Preferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New returns a user with a fresh id and default preferences.
func New(email, name string) *User {
	now := time.Now().UTC()
	return &User{
		ID:          NewID(),
		Email:       NormalizeEmail(email),
		Name:        strings.TrimSpace(name),
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewID generates a user id.
func NewID() string {
	return "usr_" + uuid.New().String()[:22]
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ProfileComplete reports whether the fields needed for path generation are set.
func (u *User) ProfileComplete() bool {
	return u.Name != "" &&
		u.Email != "" &&
		strings.TrimSpace(u.Preferences.CareerPath) != "" &&
		u.Preferences.SkillLevel != ""
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name            *string
	LearningStyle   *LearningStyle
	Pace            *Pace
	CareerPath      *string
	SkillLevel      *SkillLevel
	DesiredSkill    *string
	PrimaryLanguage *string
	ShortTermGoals  *string
	LongTermGoals   *string
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	prefs := &u.Preferences
	if p.LearningStyle != nil {
		prefs.LearningStyle = *p.LearningStyle
	}
	if p.Pace != nil {
		prefs.Pace = *p.Pace
	}
	if p.CareerPath != nil {
		prefs.CareerPath = *p.CareerPath
	}
	if p.SkillLevel != nil {
		prefs.SkillLevel = *p.SkillLevel
	}
	if p.DesiredSkill != nil {
		prefs.DesiredSkill = *p.DesiredSkill
	}
	if p.PrimaryLanguage != nil {
		prefs.PrimaryLanguage = *p.PrimaryLanguage
	}
	if p.ShortTermGoals != nil {
		prefs.ShortTermGoals = *p.ShortTermGoals
	}
	if p.LongTermGoals != nil {
		prefs.LongTermGoals = *p.LongTermGoals
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = cloneString(u.PasswordHash)
	c.GoogleSub = cloneString(u.GoogleSub)
	return &c
}
