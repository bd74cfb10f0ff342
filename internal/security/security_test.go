package security

import (
	"strings"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec, err := NewCodec("test-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintext := []byte(`{"person_name":"Alice","confidence":0.95}`)

	token, err := codec.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	decrypted, err := codec.Decrypt(token)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}

	if string(decrypted) != string(plaintext) {
		t.Errorf("round trip mismatch: got '%s'", decrypted)
	}
}

func TestCodec_TokensAreUnique(t *testing.T) {
	codec, _ := NewCodec("test-passphrase")

	first, _ := codec.Encrypt([]byte("same payload"))
	second, _ := codec.Encrypt([]byte("same payload"))

	// Random nonces make identical payloads produce different tokens.
	if first == second {
		t.Error("expected distinct tokens for repeated payloads")
	}
}

func TestCodec_WrongPassphrase(t *testing.T) {
	codec, _ := NewCodec("correct-passphrase")
	other, _ := NewCodec("wrong-passphrase")

	token, _ := codec.Encrypt([]byte("secret"))

	if _, err := other.Decrypt(token); err == nil {
		t.Error("expected decryption with the wrong passphrase to fail")
	}
}

func TestCodec_TamperedToken(t *testing.T) {
	codec, _ := NewCodec("test-passphrase")

	token, _ := codec.Encrypt([]byte("secret"))

	// Flip a character near the end of the token.
	tampered := token[:len(token)-2] + "AA"
	if tampered == token {
		tampered = token[:len(token)-2] + "BB"
	}

	if _, err := codec.Decrypt(tampered); err == nil {
		t.Error("expected tampered token to fail decryption")
	}
}

func TestCodec_SealBytesRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-passphrase")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Binary payload with bytes that would not survive naive string handling.
	plaintext := []byte{0x00, 0xff, 0x10, 0x80, 0x7f, 0x00}

	sealed, err := codec.SealBytes(plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if len(sealed) <= len(plaintext) {
		t.Errorf("sealed data should carry nonce and tag, got %d bytes", len(sealed))
	}

	opened, err := codec.OpenBytes(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(opened) != len(plaintext) {
		t.Fatalf("round trip length mismatch: got %d, want %d", len(opened), len(plaintext))
	}
	for i := range plaintext {
		if opened[i] != plaintext[i] {
			t.Fatalf("byte %d mismatch: got %x, want %x", i, opened[i], plaintext[i])
		}
	}
}

func TestCodec_OpenBytesTooShort(t *testing.T) {
	codec, _ := NewCodec("test-passphrase")

	if _, err := codec.OpenBytes([]byte{0x01, 0x02}); err == nil {
		t.Error("expected error for truncated sealed data")
	}
}

func TestCodec_MalformedTokens(t *testing.T) {
	codec, _ := NewCodec("test-passphrase")

	tests := []struct {
		name  string
		token string
	}{
		{name: "not base64", token: "not/valid/base64!!"},
		{name: "empty", token: ""},
		{name: "too short", token: "QUJD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decrypt(tt.token); err == nil {
				t.Errorf("expected error for token '%s'", tt.token)
			}
		})
	}
}

func TestNewCodec_EmptyPassphrase(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Error("expected error for empty passphrase")
	}
}

func TestHash(t *testing.T) {
	first := Hash("camera_index=1")
	second := Hash("camera_index=1")
	different := Hash("camera_index=2")

	if first != second {
		t.Error("expected identical input to hash identically")
	}
	if first == different {
		t.Error("expected different input to hash differently")
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(first))
	}
	if strings.ToLower(first) != first {
		t.Error("expected lowercase hex encoding")
	}
}

func TestHashBytes(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	if HashBytes(data) != HashBytes([]byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Error("expected identical input to hash identically")
	}
	if len(HashBytes(data)) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(HashBytes(data)))
	}
}
