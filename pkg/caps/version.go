package caps

import (
	"fmt"
	"strconv"
	"strings"
)

// DriverVersion is the four-part version reported by a graphics driver.
// No ordering between components is enforced.
type DriverVersion struct {
	Major   int `json:"major" yaml:"major"`
	Minor   int `json:"minor" yaml:"minor"`
	Release int `json:"release" yaml:"release"`
	Build   int `json:"build" yaml:"build"`
}

// String formats the version as major.minor.release.build.
func (v DriverVersion) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Release, v.Build)
}

// IsZero reports whether every component is zero.
func (v DriverVersion) IsZero() bool {
	return v == DriverVersion{}
}

// ParseDriverVersion parses one to four dot-separated integers.
// Components that are not present default to zero.
func ParseDriverVersion(s string) (DriverVersion, error) {
	var v DriverVersion
	s = strings.TrimSpace(s)
	if s == "" {
		return v, fmt.Errorf("empty driver version")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return v, fmt.Errorf("driver version %q has %d components, want at most 4", s, len(parts))
	}

	fields := []*int{&v.Major, &v.Minor, &v.Release, &v.Build}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return DriverVersion{}, fmt.Errorf("driver version %q: invalid component %q: %w", s, part, err)
		}
		*fields[i] = n
	}

	return v, nil
}
