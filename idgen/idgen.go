// Package idgen provides pluggable ID generation for axwatch entities:
// monitoring sessions ("ses_"), journal rows ("jrn_"), and analysis
// requests ("req_"). Constructors accept a Generator so the ID strategy is
// a startup-time decision.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
// Time-sortable, which keeps journal rows naturally ordered.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// NanoID returns a Generator producing base-36 IDs of the given length.
// Short and cheap; used for per-dispatch analysis request IDs where a
// full UUID is noise in the logs.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		out := make([]byte, length)
		for i := range out {
			out[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(out)
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Session is the default generator for monitoring session IDs.
func Session() Generator { return Prefixed("ses_", UUIDv7()) }

// Journal is the default generator for journal row IDs.
func Journal() Generator { return Prefixed("jrn_", UUIDv7()) }

// Request is the default generator for analysis request IDs.
func Request() Generator { return Prefixed("req_", NanoID(10)) }
