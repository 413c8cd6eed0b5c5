package domain

import (
	"sort"
	"time"
)

// FieldSet is the set of event fields a write touched. A nil FieldSet means
// the caller did not say which fields changed.
type FieldSet map[string]struct{}

// Fields builds a known FieldSet. Fields() with no names is known and empty.
func Fields(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, n := range names {
		fs[n] = struct{}{}
	}
	return fs
}

// Known reports whether the set of changed fields was provided.
func (fs FieldSet) Known() bool { return fs != nil }

// Has reports whether the field is in the set.
func (fs FieldSet) Has(name string) bool {
	_, ok := fs[name]
	return ok
}

// With returns a copy including the given names. An unknown set stays unknown.
func (fs FieldSet) With(names ...string) FieldSet {
	if fs == nil {
		return nil
	}
	out := make(FieldSet, len(fs)+len(names))
	for n := range fs {
		out[n] = struct{}{}
	}
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// Names returns the field names in sorted order.
func (fs FieldSet) Names() []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// WriteDecision is the pre-commit verdict for a single event write.
type WriteDecision struct {
	// NeedsWeather asks the post-commit stage to fetch and attach a forecast.
	NeedsWeather bool
	// ClearedWeather is set when the attached snapshot was dropped because it
	// no longer matches the event's time or venue.
	ClearedWeather bool
}

// PlanWrite decides, before commit, whether next needs a fresh forecast.
// old is nil for a new event. The returned event has its weather reference
// cleared when a published event moved in time or space.
func PlanWrite(old *Event, next Event) (Event, WriteDecision) {
	if next.Status != StatusPublished {
		return next, WriteDecision{}
	}
	if old == nil {
		return next, WriteDecision{NeedsWeather: true}
	}
	if old.Status != StatusPublished {
		return next, WriteDecision{NeedsWeather: true}
	}
	if !old.StartAt.Equal(next.StartAt) || old.VenueID != next.VenueID {
		next.WeatherID = nil
		return next, WriteDecision{NeedsWeather: true, ClearedWeather: true}
	}
	return next, WriteDecision{}
}

// ShouldNotify decides, after commit, whether subscribers hear about ev.
// Updates that are known not to touch status never notify, so attaching a
// forecast or a preview to a published event stays quiet.
func ShouldNotify(ev Event, created bool, changed FieldSet) bool {
	if ev.Status != StatusPublished {
		return false
	}
	if !created && changed.Known() && !changed.Has(FieldStatus) {
		return false
	}
	return true
}

// Intersect returns the names present in both sets. An unknown receiver
// yields other unchanged.
func (fs FieldSet) Intersect(other FieldSet) FieldSet {
	if fs == nil {
		return other
	}
	out := make(FieldSet)
	for n := range fs {
		if other.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// ChangedFields compares two versions of an event and returns the fields
// whose values differ. The result is always a known set.
func ChangedFields(old, next Event) FieldSet {
	fs := Fields()
	if old.Title != next.Title {
		fs[FieldTitle] = struct{}{}
	}
	if old.Description != next.Description {
		fs[FieldDescription] = struct{}{}
	}
	if !old.StartAt.Equal(next.StartAt) {
		fs[FieldStartAt] = struct{}{}
	}
	if !old.EndAt.Equal(next.EndAt) {
		fs[FieldEndAt] = struct{}{}
	}
	if !equalTimePtr(old.PublishAt, next.PublishAt) {
		fs[FieldPublishAt] = struct{}{}
	}
	if old.Status != next.Status {
		fs[FieldStatus] = struct{}{}
	}
	if old.Rating != next.Rating {
		fs[FieldRating] = struct{}{}
	}
	if old.VenueID != next.VenueID {
		fs[FieldVenue] = struct{}{}
	}
	if old.AuthorID != next.AuthorID {
		fs[FieldAuthor] = struct{}{}
	}
	if (old.WeatherID == nil) != (next.WeatherID == nil) ||
		(old.WeatherID != nil && *old.WeatherID != *next.WeatherID) {
		fs[FieldWeather] = struct{}{}
	}
	if old.PreviewImage != next.PreviewImage {
		fs[FieldPreviewImage] = struct{}{}
	}
	return fs
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
