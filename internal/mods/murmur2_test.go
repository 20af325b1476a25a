package mods

import "testing"

func TestMurmur2Fingerprint_StripsWhitespace(t *testing.T) {
	a := Murmur2Fingerprint([]byte("hello world"))
	b := Murmur2Fingerprint([]byte("helloworld"))
	c := Murmur2Fingerprint([]byte("hello\tworld\n"))
	if a != b {
		t.Errorf("whitespace-containing and whitespace-free inputs should hash equal: %d != %d", a, b)
	}
	if a != c {
		t.Errorf("all ascii whitespace should be stripped equally: %d != %d", a, c)
	}
}

func TestMurmur2Fingerprint_Deterministic(t *testing.T) {
	data := []byte("some jar file contents, pretend bytes")
	if Murmur2Fingerprint(data) != Murmur2Fingerprint(data) {
		t.Error("Murmur2Fingerprint must be a pure function of its input")
	}
}

func TestMurmur2Fingerprint_Empty(t *testing.T) {
	// Must not panic on an empty or sub-4-byte input.
	_ = Murmur2Fingerprint(nil)
	_ = Murmur2Fingerprint([]byte("a"))
	_ = Murmur2Fingerprint([]byte("ab"))
	_ = Murmur2Fingerprint([]byte("abc"))
}
