package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCurseForgeClient_GetFingerprintMatches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("expected x-api-key header, got %q", r.Header.Get("x-api-key"))
		}

		var body struct {
			Fingerprints []int64 `json:"fingerprints"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(body.Fingerprints) != 1 || body.Fingerprints[0] != 12345 {
			t.Fatalf("unexpected fingerprints: %+v", body.Fingerprints)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfResponse[fingerprintMatchesResult]{
			Data: fingerprintMatchesResult{
				ExactMatches: []FingerprintMatch{
					{ID: 12345, File: CFFile{ID: 999, ModID: 111, FileFingerprint: 12345}},
				},
			},
		})
	}))
	defer ts.Close()

	client := NewCurseForgeClient("test-key")
	client.baseURL = ts.URL

	matches, err := client.GetFingerprintMatches(context.Background(), []int64{12345})
	if err != nil {
		t.Fatalf("GetFingerprintMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].File.ModID != 111 {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}
