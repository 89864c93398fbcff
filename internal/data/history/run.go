package history

import "time"

const SchemaVersion = 1

// Run is one persisted impact analysis: what changed, how far the ripple
// reached, and the risk call that was made.
type Run struct {
	ID            string
	ProjectKey    string
	Timestamp     time.Time
	ChangedFiles  []string
	SeedCount     int
	ImpactedCount int
	Truncated     bool
	Risk          string
	DurationMs    int64
}
