package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identifiers.
// The version suffix allows a future algorithm migration.
const (
	DomainEvent = "editions/event/v1"
	DomainCall  = "editions/call/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator removes domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed id of an event.
// The id covers the call that produced it, its position, source, kind and data.
func EventID(callID string, seq int64, source, kind string, data IRObject) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"call_id": IRString(callID),
		"seq":     IRInt(seq),
		"source":  IRString(source),
		"kind":    IRString(kind),
		"data":    data,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// CallDigest computes a digest of a call's logical content.
// The call id is excluded, so the same request replayed under a new id
// produces the same digest.
func CallDigest(caller, method, target string, args IRObject, at int64) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"caller": IRString(caller),
		"method": IRString(method),
		"target": IRString(target),
		"args":   args,
		"at":     IRInt(at),
	})
	if err != nil {
		return "", fmt.Errorf("CallDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCall, canonical), nil
}
