package api

import (
	"strings"
	"testing"
)

func TestXboxErrorFromXErr(t *testing.T) {
	tests := []struct {
		code uint64
		want XboxErrorKind
	}{
		{2148916233, XboxErrorNoAccount},
		{2148916235, XboxErrorServicesBanned},
		{2148916236, XboxErrorAdultVerificationRequired},
		{2148916237, XboxErrorAdultVerificationRequired},
		{2148916238, XboxErrorChildAccount},
		{1234, XboxErrorUnknown},
	}

	for _, tt := range tests {
		got := xboxErrorFromXErr(tt.code)
		if got.Kind != tt.want {
			t.Errorf("xerr %d: got kind %v, want %v", tt.code, got.Kind, tt.want)
		}
	}
}

func TestXboxError_UnknownIncludesCode(t *testing.T) {
	err := xboxErrorFromXErr(999999)
	if !strings.Contains(err.Error(), "999999") {
		t.Fatalf("expected error message to include the code, got %q", err.Error())
	}
}
