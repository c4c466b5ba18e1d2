// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package idgen produces collision-resistant record identifiers.
package idgen

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const (
	// SuffixLength is the number of random base36 characters appended to
	// the timestamp part of an identifier.
	SuffixLength = 9

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns a new identifier built from the base36 encoding of the
// current millisecond timestamp and a random base36 suffix. Identifiers are
// collision-resistant at this system's cardinality, not cryptographically
// unique; no existence check is performed before use.
func NewID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return ts + "-" + randomBase36(SuffixLength)
}

func randomBase36(n int) string {
	alphabetLen := big.NewInt(int64(len(base36Alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; fall back to a time-derived character rather
			// than returning a short identifier.
			buf[i] = base36Alphabet[time.Now().UnixNano()%36]
			continue
		}
		buf[i] = base36Alphabet[idx.Int64()]
	}
	return string(buf)
}
