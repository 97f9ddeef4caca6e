package ir

import (
	"crypto"
	_ "crypto/sha256" // registers crypto.SHA256
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrCryptoUnavailable is returned when no SHA-256 implementation is linked.
// It is an environment failure, never a data error.
var ErrCryptoUnavailable = errors.New("crypto unavailable: SHA-256 is not registered")

// ErrNotFound is wrapped by plan sources when a requested record does not
// exist.
var ErrNotFound = errors.New("not found")

// digestHash is the hash used by Digest. Tests swap it to simulate an
// environment without the primitive.
var digestHash = crypto.SHA256

// Digest returns the lowercase hex SHA-256 of v.
//
// Strings and byte slices are hashed as raw payloads, so Digest("hello")
// equals the SHA-256 of the five bytes "hello". Every other value is hashed
// over its MarshalCanonical form.
func Digest(v any) (string, error) {
	var payload []byte
	switch val := v.(type) {
	case string:
		payload = []byte(val)
	case []byte:
		payload = val
	default:
		canonical, err := MarshalCanonical(v)
		if err != nil {
			return "", fmt.Errorf("digest: %w", err)
		}
		payload = canonical
	}
	return digestBytes(payload)
}

func digestBytes(data []byte) (string, error) {
	if !digestHash.Available() {
		return "", ErrCryptoUnavailable
	}
	h := digestHash.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PlanInputHash computes the content hash of a plan input. Any change to the
// record, a line item or a derived classification changes the hash.
func PlanInputHash(input PlanInput) (string, error) {
	h, err := Digest(input)
	if err != nil {
		return "", fmt.Errorf("PlanInputHash: %w", err)
	}
	return h, nil
}

// PlanID computes the composite plan identifier:
//
//	digest("plan:" + recordURI + ":" + snapshotHash + ":" + planInputHash)
//
// It is stable for byte-identical re-runs and is the idempotence key
// downstream materialization compares against.
func PlanID(recordURI, snapshotHash, planInputHash string) (string, error) {
	id, err := Digest("plan:" + recordURI + ":" + snapshotHash + ":" + planInputHash)
	if err != nil {
		return "", fmt.Errorf("PlanID: %w", err)
	}
	return id, nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDigest(v any) string {
	h, err := Digest(v)
	if err != nil {
		panic(err)
	}
	return h
}
