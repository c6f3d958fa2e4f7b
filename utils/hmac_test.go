package utils

import "testing"

func TestComputeHMACSHA256(t *testing.T) {
	t.Parallel()

	body := []byte(`{"job_id":"ft-1","status":"succeeded"}`)
	sig := ComputeHMACSHA256("secret", body)

	if sig == "" {
		t.Fatal("empty signature")
	}
	if sig != ComputeHMACSHA256("secret", body) {
		t.Error("signature is not deterministic")
	}
	if sig == ComputeHMACSHA256("other-secret", body) {
		t.Error("different keys produced the same signature")
	}
	if sig == ComputeHMACSHA256("secret", []byte(`{}`)) {
		t.Error("different bodies produced the same signature")
	}
}

func TestSecureCompare(t *testing.T) {
	t.Parallel()

	if !SecureCompare("abc", "abc") {
		t.Error("equal strings compared unequal")
	}
	if SecureCompare("abc", "abd") {
		t.Error("unequal strings compared equal")
	}
	if SecureCompare("abc", "abcd") {
		t.Error("different lengths compared equal")
	}
}
