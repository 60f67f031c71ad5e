package aggregator

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tonimelisma/gtfsrt-aggregator/internal/fetcher"
)

const (
	individualPrefix = "individual_"
	parquetSuffix    = ".parquet"
)

// parseIndividualTimestamp extracts the wall-clock instant encoded in an
// individual file's basename, interpreted in loc. Returns false for any
// basename not matching individual_YYYY-MM-DD_HH-MM-SS.parquet.
func parseIndividualTimestamp(p string, loc *time.Location) (time.Time, bool) {
	base := path.Base(p)

	if !strings.HasPrefix(base, individualPrefix) || !strings.HasSuffix(base, parquetSuffix) {
		return time.Time{}, false
	}

	stamp := strings.TrimSuffix(strings.TrimPrefix(base, individualPrefix), parquetSuffix)

	t, err := time.ParseInLocation(fetcher.FilenameTimeLayout, stamp, loc)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// floorToWindow floors t to the start of its frequency-minute window,
// aligned to local midnight of the same day. Frequencies that do not evenly
// divide 24 hours still snap consistently within a day. The result is
// rebuilt with time.Date, so a floor landing in a DST gap resolves to the
// earliest valid instant.
func floorToWindow(t time.Time, frequencyMinutes int) time.Time {
	minutesSinceMidnight := t.Hour()*60 + t.Minute()
	floored := (minutesSinceMidnight / frequencyMinutes) * frequencyMinutes

	return time.Date(t.Year(), t.Month(), t.Day(), 0, floored, 0, 0, t.Location())
}

// aggregatePath is the storage key for a window's aggregate file:
// {provider}/{service}/{YYYY-MM-DD}/{HH-MM}.parquet with the window start
// rendered in the provider timezone.
func aggregatePath(provider, service string, windowStart time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s.parquet",
		provider, service, windowStart.Format("2006-01-02"), windowStart.Format("15-04"))
}
