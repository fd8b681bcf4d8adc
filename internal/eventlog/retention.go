package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sweep deletes partitions older than retentionDays and returns how many were
// removed. A non-positive retention keeps everything.
func (l *Log) Sweep(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	now := l.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	cutoff := today.AddDate(0, 0, -retentionDays)

	days, err := l.Days()
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, day := range days {
		if !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(l.dir, filePrefix+day.Format(dayLayout)+fileSuffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed++
	}

	if removed > 0 {
		l.logger.Info().Int("removed", removed).Int("retention_days", retentionDays).Msg("event partitions swept")
	}
	return removed, nil
}
