package spec

import "github.com/google/uuid"

// IDGenerator produces a unique task identifier. It is injectable so tests
// can supply deterministic IDs; production code uses UUIDGenerator.
type IDGenerator func() string

// UUIDGenerator is the default IDGenerator: a random UUID per call, so
// multiple tasks built from the same configuration shape remain
// distinguishable to a caller or pool.
func UUIDGenerator() string {
	return uuid.NewString()
}

// resolveID returns the caller-supplied ID or generates one.
func resolveID(id string, gen IDGenerator) string {
	if id != "" {
		return id
	}
	if gen == nil {
		gen = UUIDGenerator
	}
	return gen()
}
