package java

import "testing"

func TestParseArch(t *testing.T) {
	cases := []struct {
		in      string
		want    Arch
		wantErr bool
	}{
		{"amd64", ArchX86_64, false},
		{"aarch64", ArchArm64, false},
		{"arm64", ArchArm64, false},
		{"386", ArchX86, false},
		{"riscv64", "", true},
	}
	for _, c := range cases {
		got, err := ParseArch(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseArch(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseArch(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseArch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestArchIs64Bit(t *testing.T) {
	if !ArchX86_64.Is64Bit() {
		t.Error("x86_64 should be 64-bit")
	}
	if ArchX86.Is64Bit() {
		t.Error("x86 should not be 64-bit")
	}
}
