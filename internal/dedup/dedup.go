// Package dedup merges job records by identity key.
package dedup

import "github.com/Mouseminar/job-mcp/internal/crawler"

// Key returns the identity of a record within one source: its URL when
// present, otherwise the title and company pair.
func Key(rec crawler.JobRecord) string {
	if rec.SourceURL != "" {
		return "url:" + rec.SourceURL
	}
	return "tc:" + rec.Title + "\x00" + rec.Company
}

// Merge keeps the first record for each key, preserving input order. It is
// meant for the records of a single source and is idempotent:
// Merge(Merge(x)) equals Merge(x).
func Merge(records []crawler.JobRecord) []crawler.JobRecord {
	return mergeBy(records, Key)
}

// MergeSources combines records already deduplicated per source. Records of
// different sources collapse only when their URLs coincide; records without a
// URL pass through untouched. It is idempotent like Merge.
func MergeSources(records []crawler.JobRecord) []crawler.JobRecord {
	return mergeBy(records, func(rec crawler.JobRecord) string {
		if rec.SourceURL == "" {
			return ""
		}
		return "url:" + rec.SourceURL
	})
}

// mergeBy drops records whose key was already seen. An empty key is never
// treated as a duplicate.
func mergeBy(records []crawler.JobRecord, key func(crawler.JobRecord) string) []crawler.JobRecord {
	out := make([]crawler.JobRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		k := key(rec)
		if k != "" {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, rec)
	}
	return out
}
