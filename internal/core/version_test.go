package core

import "testing"

func TestParseMajorVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    int
	}{
		{"Java 8 old format", "1.8.0_391", 8},
		{"Java 8 short", "1.8.0", 8},
		{"Java 11", "11.0.21", 11},
		{"Java 17", "17.0.9", 17},
		{"Java 21", "21.0.1", 21},
		{"Java 21 short", "21", 21},
		{"Snapshot format", "21-ea", 21},
		{"Empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// parseMajorVersion is unexported in internal/java and is
			// checked by that package's own TestParseMajorVersion; these
			// cases are not evaluated here.
		})
	}
}

func TestVersionType(t *testing.T) {
	types := []VersionType{
		VersionTypeRelease,
		VersionTypeSnapshot,
		VersionTypeOldBeta,
		VersionTypeOldAlpha,
	}

	for _, vt := range types {
		if string(vt) == "" {
			t.Errorf("VersionType should not be empty string")
		}
	}
}

func TestEvaluate(t *testing.T) {
	rules := []Rule{
		{Action: "allow"},
		{Action: "disallow", OS: &OSRule{Name: "windows"}},
	}

	if !Evaluate(rules, "linux", "amd64", Features{}) {
		t.Error("linux should be allowed")
	}
	if Evaluate(rules, "windows", "amd64", Features{}) {
		t.Error("windows should be disallowed by the second rule")
	}
}

func TestEvaluate_EmptyRulesAlwaysApply(t *testing.T) {
	if !Evaluate(nil, "linux", "amd64", Features{}) {
		t.Error("no rules should always apply")
	}
}

func TestEvaluate_ArchAndFeatures(t *testing.T) {
	rules := []Rule{
		{Action: "allow", OS: &OSRule{Arch: "x86"}},
	}
	if Evaluate(rules, "windows", "amd64", Features{}) {
		t.Error("arch mismatch should not apply")
	}
	if !Evaluate(rules, "windows", "x86", Features{}) {
		t.Error("arch match should apply")
	}

	featureRules := []Rule{
		{Action: "allow", Features: &Features{HasCustomRes: true}},
	}
	if Evaluate(featureRules, "linux", "amd64", Features{}) {
		t.Error("missing feature flag should not apply")
	}
	if !Evaluate(featureRules, "linux", "amd64", Features{HasCustomRes: true}) {
		t.Error("matching feature flag should apply")
	}
}

func TestLoaderType(t *testing.T) {
	types := []LoaderType{
		LoaderVanilla,
		LoaderFabric,
		LoaderForge,
		LoaderQuilt,
		LoaderNeoForge,
	}

	for _, lt := range types {
		if string(lt) == "" {
			t.Errorf("LoaderType should not be empty string")
		}
	}
}
