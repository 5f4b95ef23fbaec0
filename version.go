package p2pwire

import (
	"fmt"
	"strings"
)

// Version is the major.minor.patch identifier exchanged by GET_VERSION.
type Version struct {
	Major int32 `json:"major"`
	Minor int32 `json:"minor"`
	Patch int32 `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible reports whether two peers can talk; only the major number has
// to match.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVersion reads three dot separated fields left to right. Each field has
// to pass ParseInt and nothing may follow the third one.
func ParseVersion(s string) (Version, error) {
	var fields [3]int32
	pos := 0
	for i := range fields {
		if pos > len(s) {
			return Version{}, fmt.Errorf("%w: %q has %d fields", ErrInvalidVersionFormat, s, i)
		}
		rest := s[pos:]
		end := strings.IndexByte(rest, '.')
		if end < 0 {
			end = len(rest)
		}
		n, ok := ParseInt(rest[:end])
		if !ok {
			return Version{}, fmt.Errorf("%w: %q field %d", ErrInvalidVersionFormat, s, i)
		}
		fields[i] = n
		pos += end + 1
	}
	if pos <= len(s) {
		return Version{}, fmt.Errorf("%w: %q has trailing data", ErrInvalidVersionFormat, s)
	}
	return Version{Major: fields[0], Minor: fields[1], Patch: fields[2]}, nil
}
