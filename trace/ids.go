// Package trace provides W3C Trace Context-compatible identifiers, span
// records, and push-based span export for the loom engine.
//
// Identifiers follow the traceparent convention: 16-byte trace IDs and 8-byte
// span IDs, lowercase hex encoded. Spans carry parent/child linkage so a
// tracing backend can reconstruct the execution tree from exported records.
package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// FlagSampled marks a trace as sampled in the traceparent flags octet.
const FlagSampled byte = 0x01

// NewTraceID returns a random 16-byte trace ID as 32 lowercase hex characters.
func NewTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("trace: entropy source failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// NewSpanID returns a random 8-byte span ID as 16 lowercase hex characters.
func NewSpanID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("trace: entropy source failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// Traceparent formats trace identifiers into a W3C traceparent header value:
// "00-{trace-id}-{span-id}-{flags}".
func Traceparent(traceID, spanID string, flags byte) string {
	return fmt.Sprintf("00-%s-%s-%02x", traceID, spanID, flags)
}

// ParseTraceparent parses a W3C traceparent header value. Only version 00 is
// accepted. All-zero trace or span IDs are rejected, as W3C Trace Context
// treats them as invalid identifiers.
func ParseTraceparent(header string) (traceID, spanID string, flags byte, err error) {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 {
		return "", "", 0, fmt.Errorf("trace: malformed traceparent %q", header)
	}
	if parts[0] != "00" {
		return "", "", 0, fmt.Errorf("trace: unsupported traceparent version %q", parts[0])
	}
	if len(parts[1]) != 32 || !isHex(parts[1]) || parts[1] == strings.Repeat("0", 32) {
		return "", "", 0, fmt.Errorf("trace: invalid trace-id %q", parts[1])
	}
	if len(parts[2]) != 16 || !isHex(parts[2]) || parts[2] == strings.Repeat("0", 16) {
		return "", "", 0, fmt.Errorf("trace: invalid span-id %q", parts[2])
	}
	raw, decErr := hex.DecodeString(parts[3])
	if decErr != nil || len(raw) != 1 {
		return "", "", 0, fmt.Errorf("trace: invalid flags %q", parts[3])
	}
	return parts[1], parts[2], raw[0], nil
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
