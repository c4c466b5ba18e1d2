// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MaxInlinePayloadSize bounds the encoded size of the inline fallback payload
// carried in the resolution link's data query parameter.
const MaxInlinePayloadSize = 2048

// InlinePayload is the size-bounded copy of a record's essential fields that
// travels alongside the identifier in a resolution link. It is the last
// resolution tier: a device with no network and no local copy can still show
// the right content, at the cost of losing analytics for that scan.
type InlinePayload struct {
	Content string `json:"content"`
	Label   string `json:"label"`
}

// EncodeInlinePayload returns the base64 JSON encoding of the record's
// essential fields, or the empty string when the encoded payload would
// exceed MaxInlinePayloadSize.
func EncodeInlinePayload(r *Record) string {
	data, err := json.Marshal(InlinePayload{Content: r.Content, Label: r.Label})
	if err != nil {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) > MaxInlinePayloadSize {
		return ""
	}
	return encoded
}

// DecodeInlinePayload parses a data query parameter back into an inline
// payload. Both standard and URL-safe base64 alphabets are accepted so that
// links issued by older builds keep resolving.
func DecodeInlinePayload(data string) (*InlinePayload, error) {
	if data == "" {
		return nil, fmt.Errorf("empty inline payload")
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(data)
	}
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding inline payload: %w", err)
	}

	var payload InlinePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parsing inline payload: %w", err)
	}
	if payload.Content == "" {
		return nil, fmt.Errorf("inline payload has no content")
	}
	return &payload, nil
}
