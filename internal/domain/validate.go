package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateEvent checks the invariants every persisted event must satisfy.
func ValidateEvent(e Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return invalid(FieldTitle, "must not be empty")
	}
	if e.StartAt.IsZero() {
		return invalid(FieldStartAt, "is required")
	}
	if e.EndAt.IsZero() {
		return invalid(FieldEndAt, "is required")
	}
	if !e.EndAt.After(e.StartAt) {
		return invalid(FieldEndAt, "must be later than start_at")
	}
	if e.Rating < MinRating || e.Rating > MaxRating {
		return invalid(FieldRating, fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	if !e.Status.Valid() {
		return invalid(FieldStatus, fmt.Sprintf("unknown status %q", e.Status))
	}
	if e.VenueID == uuid.Nil {
		return invalid(FieldVenue, "is required")
	}
	if e.AuthorID == uuid.Nil {
		return invalid(FieldAuthor, "is required")
	}
	return nil
}

// ValidateTransition rejects status changes that move backwards or leave DELETED.
func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	if to == StatusDeleted {
		return nil
	}
	if from == StatusDeleted {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, StatusDeleted)
	}
	if rank[to] < rank[from] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateVenue checks that a venue has a name and a resolvable location.
func ValidateVenue(v Venue) error {
	if strings.TrimSpace(v.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if _, err := ResolveCoordinates(v.Location); err != nil {
		return invalid("location", err.Error())
	}
	return nil
}
