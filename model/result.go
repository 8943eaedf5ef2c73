package model

import "time"

// Result is what a Gateway.Execute call returns: either a plain hit
// list or a formatted aggregation, plus the bookkeeping fields the
// teacher's own Result carried (total hit count, duration).
type Result struct {
	TotalHitCount int64
	Hits          []map[string]any
	Formatted     any // cube/table/list shaped output, see package format
	ContentType   string
	Duration      time.Duration
}

// ResultBucket is one realized partition of an aggregated edge, kept
// from the teacher's own ResultBucket shape (Value/HitCount plus
// recursive sub-buckets for nested edges).
type ResultBucket struct {
	Value            any
	HitCount         int64
	SubResultBuckets map[string][]*ResultBucket
}
