package history

import (
	"database/sql"
	"time"
)

const entryColumns = `id, timestamp, action, path, file_name, kind, size, root, error_message`

// GetRecent returns the N most recent removal events
func (h *DB) GetRecent(limit int) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM removals
	ORDER BY timestamp DESC
	LIMIT ?
	`

	return h.queryEntries(query, limit)
}

// GetByAction returns events filtered by action (REMOVE, DRY_RUN, ERROR)
func (h *DB) GetByAction(action string) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM removals
	WHERE action = ?
	ORDER BY timestamp DESC
	`

	return h.queryEntries(query, action)
}

// GetByKind returns events filtered by entry kind (directory, file)
func (h *DB) GetByKind(kind string) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM removals
	WHERE kind = ?
	ORDER BY timestamp DESC
	`

	return h.queryEntries(query, kind)
}

// GetByPath returns events matching a path pattern (SQL LIKE syntax)
func (h *DB) GetByPath(pathPattern string) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM removals
	WHERE path LIKE ?
	ORDER BY timestamp DESC
	`

	return h.queryEntries(query, pathPattern)
}

// GetLargest returns the N largest successful removals by size
func (h *DB) GetLargest(limit int) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM removals
	WHERE action = 'REMOVE'
	ORDER BY size DESC
	LIMIT ?
	`

	return h.queryEntries(query, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (h *DB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0)
	FROM removals
	WHERE action = 'REMOVE' AND timestamp BETWEEN ? AND ?
	`

	var total int64
	err := h.db.QueryRow(query, start, end).Scan(&total)
	return total, err
}

// GetCountByAction returns event counts grouped by action
func (h *DB) GetCountByAction() (map[string]int, error) {
	query := `
	SELECT action, COUNT(*)
	FROM removals
	GROUP BY action
	`

	rows, err := h.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}

	return counts, rows.Err()
}

// GetCountByKind returns successful removal counts grouped by entry kind
func (h *DB) GetCountByKind() (map[string]int, error) {
	query := `
	SELECT kind, COUNT(*)
	FROM removals
	WHERE action = 'REMOVE'
	GROUP BY kind
	`

	rows, err := h.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		counts[kind] = count
	}

	return counts, rows.Err()
}

// Stats holds aggregated removal statistics
type Stats struct {
	TotalRemoved    int
	TotalDryRun     int
	TotalErrors     int
	TotalSpaceFreed int64
	ByAction        map[string]int
	ByKind          map[string]int
	StartDate       time.Time
	EndDate         time.Time
}

// GetStats returns comprehensive statistics for a time period
func (h *DB) GetStats(days int) (*Stats, error) {
	since := time.Now().AddDate(0, 0, -days)
	now := time.Now()

	stats := &Stats{
		StartDate: since,
		EndDate:   now,
	}

	err := h.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'REMOVE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM removals
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalRemoved, &stats.TotalDryRun, &stats.TotalErrors)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = h.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = h.GetCountByAction()
	if err != nil {
		return nil, err
	}

	stats.ByKind, err = h.GetCountByKind()
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldEntries removes history older than the given number of days
func (h *DB) DeleteOldEntries(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := h.db.Exec(`
		DELETE FROM removals WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// queryEntries executes a query and scans the resulting rows
func (h *DB) queryEntries(query string, args ...interface{}) ([]Entry, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var root, errMsg sql.NullString

		err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Action, &e.Path, &e.FileName,
			&e.Kind, &e.Size, &root, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		if root.Valid {
			e.Root = root.String
		}
		if errMsg.Valid {
			e.ErrorMessage = errMsg.String
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
