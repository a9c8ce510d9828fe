package cos

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"
)

// Credentials holds the shared secret material for signing bucket requests.
type Credentials struct {
	AppID     string
	Bucket    string
	SecretID  string
	SecretKey string
}

// Sign produces a multi-effect authorization credential valid for ttl.
// The plaintext is the canonical field string
//
//	a=<appid>&b=<bucket>&k=<secretid>&e=<expires>&t=<now>&r=<rand>&f=
//
// and the credential is base64(HMAC-SHA1(secretKey, plaintext) || plaintext).
// Credentials are regenerated per ingestion request and never cached.
func (c Credentials) Sign(now time.Time, ttl time.Duration) string {
	return c.sign(now, ttl, rand.Uint32())
}

func (c Credentials) sign(now time.Time, ttl time.Duration, rnd uint32) string {
	plain := fmt.Sprintf("a=%s&b=%s&k=%s&e=%d&t=%d&r=%d&f=",
		c.AppID, c.Bucket, c.SecretID, now.Add(ttl).Unix(), now.Unix(), rnd)

	mac := hmac.New(sha1.New, []byte(c.SecretKey))
	mac.Write([]byte(plain))

	raw := append(mac.Sum(nil), plain...)
	return base64.StdEncoding.EncodeToString(raw)
}
