package crypto

import (
	"bytes"
	"encoding/base64"
	"testing"

	"cipherchat/internal/apperr"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewCodecKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 24, 31, 33, 64} {
		if _, err := NewCodec(make([]byte, n)); err == nil {
			t.Errorf("NewCodec accepted a %d-byte key", n)
		}
	}
	if _, err := NewCodec(testKey()); err != nil {
		t.Fatalf("NewCodec rejected a 32-byte key: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	codec, err := NewCodec(testKey())
	if err != nil {
		t.Fatal(err)
	}

	cases := [][]byte{
		[]byte(""),
		[]byte("hi"),
		[]byte("a longer message with spaces and punctuation!"),
		[]byte("héllo wörld 🙂"),
		bytes.Repeat([]byte{0x00, 0xff}, 500),
	}
	for _, plaintext := range cases {
		ct, iv, err := codec.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		got, err := codec.Decrypt(ct, iv)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", plaintext, err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch: got %q want %q", got, plaintext)
		}
	}
}

func TestNonceUnique(t *testing.T) {
	codec, _ := NewCodec(testKey())
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		_, iv, err := codec.Encrypt([]byte("same message"))
		if err != nil {
			t.Fatal(err)
		}
		if seen[iv] {
			t.Fatalf("nonce repeated after %d encryptions", i)
		}
		seen[iv] = true
	}
}

func TestTamperDetection(t *testing.T) {
	codec, _ := NewCodec(testKey())
	ct, iv, err := codec.Encrypt([]byte("the original message"))
	if err != nil {
		t.Fatal(err)
	}

	flipBit := func(b64 string, bit int) string {
		raw, _ := base64.StdEncoding.DecodeString(b64)
		raw[bit/8] ^= 1 << (bit % 8)
		return base64.StdEncoding.EncodeToString(raw)
	}

	rawCT, _ := base64.StdEncoding.DecodeString(ct)
	for bit := 0; bit < len(rawCT)*8; bit += 7 {
		if _, err := codec.Decrypt(flipBit(ct, bit), iv); err == nil {
			t.Fatalf("flipping ciphertext bit %d went undetected", bit)
		}
	}
	for bit := 0; bit < NonceSize*8; bit += 5 {
		if _, err := codec.Decrypt(ct, flipBit(iv, bit)); err == nil {
			t.Fatalf("flipping iv bit %d went undetected", bit)
		}
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	codec, _ := NewCodec(testKey())
	cases := []struct {
		name   string
		ct, iv string
	}{
		{"bad base64 ciphertext", "not base64!!!", base64.StdEncoding.EncodeToString(make([]byte, NonceSize))},
		{"bad base64 iv", base64.StdEncoding.EncodeToString(make([]byte, 32)), "@@@"},
		{"short iv", base64.StdEncoding.EncodeToString(make([]byte, 32)), base64.StdEncoding.EncodeToString(make([]byte, 4))},
		{"short ciphertext", base64.StdEncoding.EncodeToString(make([]byte, 4)), base64.StdEncoding.EncodeToString(make([]byte, NonceSize))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decrypt(tc.ct, tc.iv)
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperr.Is(err, apperr.Decryption) {
				t.Errorf("expected Decryption kind, got %v", err)
			}
		})
	}
}

func TestWrongKeyFails(t *testing.T) {
	a, _ := NewCodec(testKey())
	other := testKey()
	other[0] ^= 0xff
	b, _ := NewCodec(other)

	ct, iv, _ := a.Encrypt([]byte("secret"))
	if _, err := b.Decrypt(ct, iv); err == nil {
		t.Fatal("decryption under the wrong key succeeded")
	}
}
