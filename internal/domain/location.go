package domain

import "regexp"

// UnknownLocation is rendered when the platform reports no location at all.
const UnknownLocation = "(unknown)"

var worldLocation = regexp.MustCompile(`^(wrld_[0-9a-fA-F-]+)(?::(.+))?$`)

// ParseWorldID returns the world id portion of a location string, or ok=false
// when the location is a sentinel such as "private", "offline" or
// "traveling" that should pass through untouched.
func ParseWorldID(location string) (worldID string, ok bool) {
	m := worldLocation.FindStringSubmatch(location)
	if m == nil {
		return "", false
	}
	return m[1], true
}
