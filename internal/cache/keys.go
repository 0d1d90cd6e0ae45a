package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/esseedoubleyou/goldmonitor/internal/config"
)

// Namespace is the Redis key prefix for the gold monitor application.
const Namespace = "goldmon"

// ErrNotFound is the sentinel the go-zero cache layer returns on a miss.
var ErrNotFound = errors.New("cache: key not found")

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations. The defaults
// follow the data cadence: quotes move intraday, derived series daily.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 5*time.Minute),
		Medium: durationOrDefault(cfg.Medium, time.Hour),
		Long:   durationOrDefault(cfg.Long, 24*time.Hour),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class, useful for half/double TTL variants.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- History & Snapshot Keys ------------------------------------------------

// HistoryKey holds the full stored history, every metric series in one
// digest payload. Loads and post-run refreshes go through the same entry.
func HistoryKey() string {
	return formatKey("history", "all")
}

// SnapshotLatestKey holds the most recently computed derived-metric snapshot.
func SnapshotLatestKey() string {
	return formatKey("snapshot", "latest")
}

// --- Central Bank Keys ------------------------------------------------------

// SignalKey holds the validated central bank demand signal.
func SignalKey() string {
	return formatKey("cb", "signal")
}

// --- Report Keys ------------------------------------------------------------

// ReportKey holds a rendered monthly report, keyed YYYY-MM.
func ReportKey(month string) string {
	return formatKey("report", month)
}

// --- Locks ------------------------------------------------------------------

// FetchLockKey is a short-lived guard against concurrent full-window fetches.
func FetchLockKey() string {
	return formatKey("lock", "fetch")
}

// --- TTL Helpers ------------------------------------------------------------

// HistoryTTL returns the TTL for the stored-history digest.
func HistoryTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// SnapshotTTL returns the TTL for the latest snapshot payload.
func SnapshotTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// SignalTTL returns the TTL for the central bank signal.
func SignalTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

// ReportTTL returns the TTL for rendered reports.
func ReportTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLLong)
}

// FetchLockTTL returns the TTL for the fetch guard.
func FetchLockTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLShort, 0.5) // target ~2.5m when short=5m
}

// FormatCacheKey is exported for dynamic key construction when patterns
// are not covered by helpers (e.g. per-provider history segments).
func FormatCacheKey(parts ...string) string {
	return formatKey(parts...)
}

// BuildKeyWithSuffix appends an arbitrary suffix to an existing key.
func BuildKeyWithSuffix(baseKey, suffix string) string {
	if strings.TrimSpace(suffix) == "" {
		return baseKey
	}
	return fmt.Sprintf("%s:%s", baseKey, strings.TrimSpace(suffix))
}
