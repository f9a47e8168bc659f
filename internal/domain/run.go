package domain

import "time"

// FeedStats holds per-feed counters for one run.
type FeedStats struct {
	Feed    string
	Fetched int
	Seen    int
	Dropped int
	Kept    int
	Failed  bool
}

// RunStats holds statistics about a pipeline run.
type RunStats struct {
	Feeds         []FeedStats
	Rendered      int
	Batches       int
	Delivered     int
	FailedBatches int
	DegradedSends int
	PrunedRecords int
	Duration      time.Duration
}
