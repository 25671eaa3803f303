package shared

import "fmt"

// StatsWarmupLockKey builds redis keys guarding per-project stats warmup runs.
func StatsWarmupLockKey(projectID int64) string {
	return fmt.Sprintf("stats:project:%d:warmup:lock", projectID)
}
