// Package harvest orchestrates bulk acquisition runs.
//
// A run resolves the work items of one variant from a browser session,
// drives each item through the retry-once attempt machine, and only after
// the whole sweep renames artifacts (downloads) or enriches and persists
// listings (detail). Failures become journal entries; the journal is flushed
// once, and only when something failed.
//
// Items are processed sequentially per session. Throughput comes from
// shards: independent sessions, each bound to its own download directory and
// a disjoint subset of the items.
package harvest
