package memory

import (
	"errors"
	"fmt"
	"strings"
)

// Profile selects how eagerly cached buffers are evicted.
type Profile int

const (
	// Low frees every cached buffer before each render.
	Low Profile = iota

	// Normal keeps the cache below a third of physical memory and within
	// free memory.
	Normal

	// Aggressive keeps the cache within free memory only.
	Aggressive

	// Greedy allows the cache to grow into half of physical memory and
	// swap, and lifts the size limit on single renders.
	Greedy
)

// ErrUnknownProfile is returned by ParseProfile for unrecognized names.
var ErrUnknownProfile = errors.New("memory: unknown profile")

var profileNames = [...]string{
	Low:        "low",
	Normal:     "normal",
	Aggressive: "aggressive",
	Greedy:     "greedy",
}

// String returns the lower-case name of the profile.
func (p Profile) String() string {
	if p >= Low && p <= Greedy {
		return profileNames[p]
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// ParseProfile returns the profile with the given name, ignoring case.
func ParseProfile(s string) (Profile, error) {
	for p, name := range profileNames {
		if strings.EqualFold(s, name) {
			return Profile(p), nil
		}
	}
	return Normal, fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Profile) MarshalText() ([]byte, error) {
	if p < Low || p > Greedy {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProfile, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Profile) UnmarshalText(text []byte) error {
	v, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
