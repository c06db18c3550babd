package utils

import (
	"testing"
	"time"
)

func TestProductCursor_RoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 7, time.UTC)

	enc, err := EncodeProductCursor(at, "p-1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeProductCursor(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "p-1" || !got.CreatedAt.Equal(at) {
		t.Fatalf("unexpected cursor %+v", got)
	}
}

func TestDecodeProductCursor_Invalid(t *testing.T) {
	for _, in := range []string{"", "%%%", "bm90LWpzb24", "e30"} {
		if _, err := DecodeProductCursor(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("0b7c3a52-6d2e-4f8a-9a41-2f7c9e1d5b10") {
		t.Fatalf("expected valid uuid")
	}
	if IsUUID("../etc/passwd") {
		t.Fatalf("expected invalid uuid")
	}
}
