package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type Rule string

const (
	RuleBatchUnpublished   Rule = "batch_unpublished"
	RuleBatchInactive      Rule = "batch_inactive"
	RuleBatchEnded         Rule = "batch_ended"
	RuleAgeRange           Rule = "age_range"
	RuleGender             Rule = "gender"
	RuleDisability         Rule = "disability"
	RuleAlreadyEnrolled    Rule = "already_enrolled"
	RuleUnknownParticipant Rule = "unknown_participant"
	RuleNotOwner           Rule = "participant_not_owned"
	RuleParticipants       Rule = "participants"
	RuleNotes              Rule = "notes"
	RuleReason             Rule = "reason"
)

// Violation names the rule a participant (or the batch itself) failed.
type Violation struct {
	ParticipantID *uuid.UUID `json:"participantId,omitempty"`
	Rule          Rule       `json:"rule"`
	Message       string     `json:"message"`
}

func (v Violation) Error() string {
	if v.ParticipantID != nil {
		return fmt.Sprintf("participant %s: %s", v.ParticipantID, v.Message)
	}
	return v.Message
}

func batchViolation(rule Rule, msg string) Violation {
	return Violation{Rule: rule, Message: msg}
}

func participantViolation(id uuid.UUID, rule Rule, msg string) Violation {
	return Violation{ParticipantID: &id, Rule: rule, Message: msg}
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError flattens an error built with multierr into a single
// ValidationError. It returns nil when err is nil.
func NewValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range multierr.Errors(err) {
		if v, ok := e.(Violation); ok {
			ve.Violations = append(ve.Violations, v)
			continue
		}
		ve.Violations = append(ve.Violations, Violation{Message: e.Error()})
	}
	return ve
}

func NewParticipantViolation(id uuid.UUID, rule Rule, msg string) error {
	return participantViolation(id, rule, msg)
}

func NewBatchViolation(rule Rule, msg string) error {
	return batchViolation(rule, msg)
}

// CheckOpen verifies the batch currently accepts reservations.
func (b Batch) CheckOpen(now time.Time) error {
	var err error
	if b.Status != PublishStatusPublished {
		err = multierr.Append(err, batchViolation(RuleBatchUnpublished, "batch is not published"))
	}
	if !b.IsActive {
		err = multierr.Append(err, batchViolation(RuleBatchInactive, "batch is not active"))
	}
	if !b.EndDate.IsZero() && !now.Before(b.EndDate) {
		err = multierr.Append(err, batchViolation(RuleBatchEnded, "batch has already ended"))
	}
	return err
}

// CheckParticipant evaluates one participant against the batch's eligibility rules.
func (b Batch) CheckParticipant(p Participant, now time.Time) error {
	var err error
	age := p.AgeAt(now)
	if (b.MinAge > 0 && age < b.MinAge) || (b.MaxAge > 0 && age > b.MaxAge) {
		err = multierr.Append(err, participantViolation(p.ID, RuleAgeRange,
			fmt.Sprintf("age %d is outside the allowed range %d-%d", age, b.MinAge, b.MaxAge)))
	}
	if !b.AllowsGender(p.Gender) {
		err = multierr.Append(err, participantViolation(p.ID, RuleGender,
			fmt.Sprintf("gender %q is not allowed for this batch", p.Gender)))
	}
	if p.IsDisabled && !b.AllowDisabled {
		err = multierr.Append(err, participantViolation(p.ID, RuleDisability,
			"batch does not accept participants with disabilities"))
	}
	return err
}

// CheckEligibility runs the batch and participant checks, aggregating every
// failure rather than stopping at the first.
func (b Batch) CheckEligibility(participants []Participant, now time.Time) *ValidationError {
	err := b.CheckOpen(now)
	for _, p := range participants {
		err = multierr.Append(err, b.CheckParticipant(p, now))
	}
	return NewValidationError(err)
}
