package model

import "strings"

// EntryHandle is a lightweight reference to one listed entry. Key is empty
// when it could not be extracted from the listing.
type EntryHandle struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Key   string `json:"key,omitempty"`
}

// HasKey reports whether the handle can be enriched.
func (h EntryHandle) HasKey() bool { return strings.TrimSpace(h.Key) != "" }

// EnrichedRecord is an EntryHandle plus the fields fetched for it. A record
// exists for every handle; enrichment failures are carried in Error.
type EnrichedRecord struct {
	EntryHandle
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"enrichment_error,omitempty"`
}

// Field returns the named field or "" when absent.
func (r EnrichedRecord) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}
