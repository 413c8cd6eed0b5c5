// Package domain models venue-bound event listings, their publication
// lifecycle, and the weather snapshots attached to them.
//
// # Event Lifecycle
//
// Events move through a ranked set of statuses:
//
//	DRAFT → SCHEDULED → PUBLISHED → ENDED
//
// Ranks never decrease. DELETED is a soft delete: it is reachable from every
// status, the record is kept, and nothing leaves it. Skipping ranks is allowed
// (an author may publish a draft directly).
//
// Only a write whose resulting status is PUBLISHED can produce side effects.
// Two independent rules are evaluated around every write:
//
//	PlanWrite     before commit: does the event need a (fresh) forecast?
//	ShouldNotify  after commit:  should subscribers hear about it?
//
// Both are pure functions over the old and new state so the write path can
// thread their results explicitly instead of stashing flags on the entity.
//
// # Weather Conventions
//
// Provider readings arrive in SI units except pressure, which arrives in hPa
// and is stored as mmHg:
//
//	mmHg = hPa × 0.75006
//
// Point-in-time forecasts truncate the converted pressure to a whole number;
// current-conditions sweeps keep the fractional part. Wind direction is
// reduced to one of eight compass points:
//
//	index = roundHalfEven(degrees / 45) mod 8   →  N NE E SE S SW W NW
//
// Half-way values round to even (22.5° → N, 67.5° → E), matching the
// provider tooling this data historically came from.
//
// # Venue Coordinates
//
// A venue location is either a structured point or a WKT string
// "POINT(lon lat)", optionally prefixed with "SRID=4326;". Resolution always
// yields (lat, lon). When the latitude is out of range but the longitude would
// be a valid latitude, the pair is assumed to be transposed and swapped.
package domain
