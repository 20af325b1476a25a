package core

import (
	"fmt"
	"strconv"
	"strings"
)

// JavaVersion is a parsed Java runtime version string. Java's own version
// grammar predates semver and keeps the legacy "1.MAJOR.MINOR_UPDATE" shape
// inherited from the JDK 1.x naming era, e.g. "1.8.0_362-beta-202211161809-b03+152"
// names major version 8, minor 0, update/patch "362", with an embedded
// prerelease tag and a trailing build number. Minecraft's own modloader
// versions are ordinary semver and are parsed with Masterminds/semver
// instead; this parser exists only for JRE version strings.
type JavaVersion struct {
	Major         int
	Minor         int
	Patch         string
	Prerelease    string
	BuildMetadata string
}

// ParseJavaVersion parses a Java version string of the form
// "1.MAJOR.MINOR_PATCH[-PRERELEASE][+BUILD]". The legacy leading "1." is
// discarded; MAJOR and MINOR must be numeric, PATCH is kept as a literal
// string since some distributions embed non-numeric update identifiers.
func ParseJavaVersion(s string) (JavaVersion, error) {
	var v JavaVersion

	rest := s
	if plus := strings.IndexByte(rest, '+'); plus >= 0 {
		v.BuildMetadata = rest[plus+1:]
		rest = rest[:plus]
	}

	dash := strings.IndexByte(rest, '-')
	core := rest
	if dash >= 0 {
		core = rest[:dash]
		v.Prerelease = rest[dash+1:]
	}

	dotParts := strings.SplitN(core, ".", 3)
	if len(dotParts) != 3 {
		return v, fmt.Errorf("javaversion: %q missing 1.major.minor_patch shape", s)
	}
	if dotParts[0] != "1" {
		return v, fmt.Errorf("javaversion: %q does not start with legacy \"1.\" prefix", s)
	}

	major, err := strconv.Atoi(dotParts[1])
	if err != nil {
		return v, fmt.Errorf("javaversion: bad major in %q: %w", s, err)
	}
	v.Major = major

	minorAndPatch := dotParts[2]
	underscore := strings.IndexByte(minorAndPatch, '_')
	if underscore < 0 {
		minor, err := strconv.Atoi(minorAndPatch)
		if err != nil {
			return v, fmt.Errorf("javaversion: bad minor in %q: %w", s, err)
		}
		v.Minor = minor
		return v, nil
	}

	minor, err := strconv.Atoi(minorAndPatch[:underscore])
	if err != nil {
		return v, fmt.Errorf("javaversion: bad minor in %q: %w", s, err)
	}
	v.Minor = minor
	v.Patch = minorAndPatch[underscore+1:]

	return v, nil
}

// String renders the version back in canonical form.
func (v JavaVersion) String() string {
	s := fmt.Sprintf("1.%d.%d", v.Major, v.Minor)
	if v.Patch != "" {
		s += "_" + v.Patch
	}
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.BuildMetadata != "" {
		s += "+" + v.BuildMetadata
	}
	return s
}
