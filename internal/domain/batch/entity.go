package batch

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidGender = errors.New("invalid gender")

type PublishStatus string

const (
	PublishStatusPublished PublishStatus = "published"
	PublishStatusDraft     PublishStatus = "draft"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

func NewGender(s string) (Gender, error) {
	g := Gender(s)
	if !g.IsValid() {
		return "", ErrInvalidGender
	}
	return g, nil
}

// Batch is a read-only snapshot of a training batch owned by the catalog.
type Batch struct {
	ID               uuid.UUID
	CenterID         uuid.UUID
	SportID          uuid.UUID
	Name             string
	Capacity         int
	MinAge           int
	MaxAge           int
	Genders          []Gender
	AllowDisabled    bool
	StartDate        time.Time
	EndDate          time.Time
	Status           PublishStatus
	IsActive         bool
	RequiresApproval bool
	FeeAmount        int64
	Currency         string
}

// Participant is the subset of a participant profile that eligibility needs.
type Participant struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DateOfBirth time.Time
	Gender      Gender
	IsDisabled  bool
}

// AgeAt returns completed years on the given date.
func (p Participant) AgeAt(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (b Batch) AllowsGender(g Gender) bool {
	if len(b.Genders) == 0 {
		return true
	}
	for _, allowed := range b.Genders {
		if allowed == g {
			return true
		}
	}
	return false
}
