package api

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func signToken(t *testing.T, priv *rsa.PrivateKey, header, claims map[string]any) string {
	t.Helper()
	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatal(err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	signedInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)
	digest := sha256.Sum256([]byte(signedInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		t.Fatal(err)
	}
	return signedInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestRS256Verify_NoEntitlement(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	token := signToken(t, priv, map[string]any{"alg": "RS256"}, map[string]any{
		"entitlements": []map[string]string{{"name": "product_minecraft_bedrock"}},
	})

	claimsJSON, err := rs256Verify(token, &priv.PublicKey)
	if err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	var claims signedEntitlementClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		t.Fatal(err)
	}
	for _, e := range claims.Entitlements {
		if e.Name == "product_minecraft" {
			t.Fatal("did not expect product_minecraft entitlement")
		}
	}
}

func TestRS256Verify_InvalidSignature(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	token := signToken(t, priv, map[string]any{"alg": "RS256"}, map[string]any{"entitlements": []map[string]string{}})

	_, err = rs256Verify(token, &other.PublicKey)
	if err == nil {
		t.Fatal("expected signature mismatch error")
	}
	var entErr *EntitlementError
	if !asEntitlementError(err, &entErr) {
		t.Fatalf("expected *EntitlementError, got %T: %v", err, err)
	}
	if entErr.Kind != EntitlementErrInvalidSignature {
		t.Errorf("got kind %v, want EntitlementErrInvalidSignature", entErr.Kind)
	}
}

func TestRS256Verify_MissingAlgorithm(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	token := signToken(t, priv, map[string]any{}, map[string]any{"entitlements": []map[string]string{}})

	_, err = rs256Verify(token, &priv.PublicKey)
	var entErr *EntitlementError
	if !asEntitlementError(err, &entErr) {
		t.Fatalf("expected *EntitlementError, got %T: %v", err, err)
	}
	if entErr.Kind != EntitlementErrOutdated {
		t.Errorf("got kind %v, want EntitlementErrOutdated", entErr.Kind)
	}
}

func asEntitlementError(err error, target **EntitlementError) bool {
	e, ok := err.(*EntitlementError)
	if ok {
		*target = e
	}
	return ok
}
