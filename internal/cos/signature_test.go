package cos

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func TestSignFormat(t *testing.T) {
	creds := Credentials{
		AppID:     "1251817761",
		Bucket:    "yuepai01",
		SecretID:  "test-id",
		SecretKey: "test-key",
	}
	now := time.Unix(1500000000, 0)

	got := creds.sign(now, time.Minute, 42)

	raw, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("credential is not valid base64: %v", err)
	}
	if len(raw) <= sha1.Size {
		t.Fatalf("credential too short: %d bytes", len(raw))
	}

	digest, plain := raw[:sha1.Size], raw[sha1.Size:]

	wantPlain := fmt.Sprintf("a=1251817761&b=yuepai01&k=test-id&e=%d&t=%d&r=42&f=",
		now.Add(time.Minute).Unix(), now.Unix())
	if string(plain) != wantPlain {
		t.Errorf("plaintext = %q, want %q", plain, wantPlain)
	}

	mac := hmac.New(sha1.New, []byte("test-key"))
	mac.Write(plain)
	if !hmac.Equal(digest, mac.Sum(nil)) {
		t.Error("HMAC digest does not verify against the embedded plaintext")
	}
}

func TestSignDeterministic(t *testing.T) {
	creds := Credentials{AppID: "a", Bucket: "b", SecretID: "k", SecretKey: "s"}
	now := time.Unix(1600000000, 0)

	first := creds.sign(now, time.Minute, 7)
	second := creds.sign(now, time.Minute, 7)
	if first != second {
		t.Error("same inputs produced different credentials")
	}

	if creds.sign(now, time.Minute, 8) == first {
		t.Error("different rand produced identical credential")
	}
}
