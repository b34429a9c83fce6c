package yandex

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// SigningRequest is the result of signing a stream request. Raw is kept for
// diagnostics and never sent upstream.
type SigningRequest struct {
	// Timestamp is the unix time in seconds, or -1 for the deprecated scheme.
	Timestamp int64
	Signature string
	Raw       SigningRaw
}

// SigningRaw holds the exact inputs of a signature.
type SigningRaw struct {
	Message string
	Key     string
}

// Signer computes stream request signatures.
type Signer struct {
	key           string
	deprecatedKey string
	now           func() time.Time
}

// NewSigner returns a signer using the given keys. A nil clock uses time.Now.
func NewSigner(key, deprecatedKey string, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{key: key, deprecatedKey: deprecatedKey, now: now}
}

// Sign signs a file-info request. The signature is the base64 HMAC-SHA256 of
// ts+trackID+quality+codecs+transports without its trailing padding.
func (s *Signer) Sign(trackID, quality string, codecs, transports []string) SigningRequest {
	ts := s.now().Unix()

	var b strings.Builder
	b.WriteString(strconv.FormatInt(ts, 10))
	b.WriteString(trackID)
	b.WriteString(quality)
	b.WriteString(strings.Join(codecs, ""))
	b.WriteString(strings.Join(transports, ""))
	message := b.String()

	mac := hmac.New(sha256.New, []byte(s.key))
	mac.Write([]byte(message))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return SigningRequest{
		Timestamp: ts,
		Signature: strings.TrimSuffix(signature, "="),
		Raw:       SigningRaw{Message: message, Key: s.key},
	}
}

// SignDeprecated signs a legacy storage link as hex HMAC-MD5 of path+secret.
// The MAC is keyed with the stream key; Raw.Key reports the deprecated key.
func (s *Signer) SignDeprecated(storagePath, serverSecret string) SigningRequest {
	message := storagePath + serverSecret

	mac := hmac.New(md5.New, []byte(s.key))
	mac.Write([]byte(message))

	return SigningRequest{
		Timestamp: -1,
		Signature: hex.EncodeToString(mac.Sum(nil)),
		Raw:       SigningRaw{Message: message, Key: s.deprecatedKey},
	}
}
