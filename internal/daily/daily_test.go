// internal/daily/daily_test.go

package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKeyIsUTC(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC.
	late := time.Date(2025, 3, 9, 23, 30, 0, 0, time.FixedZone("", -5*3600))
	assert.Equal(t, "2025-03-10", DateKey(late))
	assert.Equal(t, "2025-03-09", DateKey(time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)))
}

func TestSeedStableWithinDate(t *testing.T) {
	morning := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 9, 21, 45, 0, 0, time.UTC)
	assert.Equal(t, Seed(morning, "salt"), Seed(evening, "salt"))
	assert.GreaterOrEqual(t, Seed(morning, "salt"), int64(0))
}

func TestSeedVariesAcrossDatesAndSalts(t *testing.T) {
	d := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
	assert.NotEqual(t, Seed(d, "salt"), Seed(d.AddDate(0, 0, 1), "salt"))
	assert.NotEqual(t, Seed(d, "salt"), Seed(d, "other"))
}
