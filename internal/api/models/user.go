package models

import "github.com/hitchpath/hitchpath/internal/user"

// User is the public view of an account.
type User struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Email                  string    `json:"email"`
	IsAdmin                bool      `json:"isAdmin"`
	PreferredLearningStyle string    `json:"preferredLearningStyle"`
	PaceOfLearning         string    `json:"paceOfLearning"`
	CareerPath             string    `json:"careerPath"`
	CurrentSkillLevel      string    `json:"currentSkillLevel"`
	DesiredSkill           string    `json:"desiredSkill"`
	PrimaryLanguage        string    `json:"primaryLanguage"`
	ShortTermGoals         string    `json:"shortTermGoals"`
	LongTermGoals          string    `json:"longTermGoals"`
	CreatedAt              Timestamp `json:"createdAt"`
	UpdatedAt              Timestamp `json:"updatedAt"`
}

// UserFromDomain converts a domain user.
func UserFromDomain(u *user.User) User {
	p := u.Preferences
	return User{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		IsAdmin:                u.IsAdmin,
		PreferredLearningStyle: string(p.LearningStyle),
		PaceOfLearning:         string(p.Pace),
		CareerPath:             p.CareerPath,
		CurrentSkillLevel:      string(p.SkillLevel),
		DesiredSkill:           p.DesiredSkill,
		PrimaryLanguage:        p.PrimaryLanguage,
		ShortTermGoals:         p.ShortTermGoals,
		LongTermGoals:          p.LongTermGoals,
		CreatedAt:              Timestamp(u.CreatedAt),
		UpdatedAt:              Timestamp(u.UpdatedAt),
	}
}

// UserResponse wraps a user.
type UserResponse struct {
	User User `json:"user"`
}

// UserUpdatedResponse is returned by POST /api/user/update.
type UserUpdatedResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

// ProfileInput is a partial profile update. Omitted fields keep their value.
type ProfileInput struct {
	Name                   *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	PreferredLearningStyle *string `json:"preferredLearningStyle,omitempty" validate:"omitempty,oneof=visual auditory reading kinesthetic"`
	PaceOfLearning         *string `json:"paceOfLearning,omitempty" validate:"omitempty,oneof=fast moderate slow"`
	CareerPath             *string `json:"careerPath,omitempty" validate:"omitempty,max=200"`
	CurrentSkillLevel      *string `json:"currentSkillLevel,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	DesiredSkill           *string `json:"desiredSkill,omitempty" validate:"omitempty,max=200"`
	PrimaryLanguage        *string `json:"primaryLanguage,omitempty" validate:"omitempty,max=100"`
	ShortTermGoals         *string `json:"shortTermGoals,omitempty" validate:"omitempty,max=2000"`
	LongTermGoals          *string `json:"longTermGoals,omitempty" validate:"omitempty,max=2000"`
}

// ToDomain converts the input to a user.ProfileUpdate.
func (in ProfileInput) ToDomain() user.ProfileUpdate {
	upd := user.ProfileUpdate{
		Name:            in.Name,
		CareerPath:      in.CareerPath,
		DesiredSkill:    in.DesiredSkill,
		PrimaryLanguage: in.PrimaryLanguage,
		ShortTermGoals:  in.ShortTermGoals,
		LongTermGoals:   in.LongTermGoals,
	}
	if in.PreferredLearningStyle != nil {
		s := user.LearningStyle(*in.PreferredLearningStyle)
		upd.LearningStyle = &s
	}
	if in.PaceOfLearning != nil {
		p := user.Pace(*in.PaceOfLearning)
		upd.Pace = &p
	}
	if in.CurrentSkillLevel != nil {
		l := user.SkillLevel(*in.CurrentSkillLevel)
		upd.SkillLevel = &l
	}
	return upd
}

// CompletedResponse reports profile completeness.
type CompletedResponse struct {
	Completed bool `json:"completed"`
}
