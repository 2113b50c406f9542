package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleLineString(t *testing.T) {
	id := int64(42)
	ra, dec := 150.25, 20.0
	start := time.Date(2026, 10, 15, 4, 30, 0, 0, time.UTC)

	line := GenericLine(&ra, &dec, "r", start, "2026 TX1_r_user_fixed", "2026 TX1: 30s by 10, r", 30, 10,
		LineOptions{Move: true, Guiding: true, CandidateID: &id})

	assert.Equal(t, "2026_TX1_r_user_fixed", line.Target)
	assert.Equal(t, 1, line.BinningSize)
	assert.Equal(t, 5*time.Minute, line.Duration())
	assert.Equal(t,
		`2026-10-15T04:30:00.000|1|2026_TX1_r_user_fixed|1|150.25|20|30|10|r|0|1|0|42|0|0|0|0|1|"2026 TX1: 30s by 10, r"`,
		line.String())
}

func TestScheduleLineWithoutCandidate(t *testing.T) {
	line := AutoFocusLine(time.Date(2026, 10, 15, 5, 0, 0, 0, time.FixedZone("PDT", -7*3600)))

	assert.True(t, line.IsFocus())
	assert.Nil(t, line.RA)
	assert.Nil(t, line.Dec)
	assert.Equal(t, time.UTC, line.Start.Location())
	assert.Equal(t,
		`2026-10-15T12:00:00.000|1|Focus|0|0|0|0|0|CLEAR|0|0|0|None|0|0|0|0|1|"Refocusing"`,
		line.String())
	assert.Equal(t, time.Duration(0), line.Duration())
}

func TestScheduleLineDescriptionIsVerbatim(t *testing.T) {
	ra, dec := 10.5, -5.0
	line := GenericLine(&ra, &dec, "g", gridStart, "Comet", `C\2026 A1 Comète`, 60, 1, LineOptions{})
	assert.True(t, strings.HasSuffix(line.String(), `|"C\2026 A1 Comète"`), line.String())
}

func TestHeaderMatchesColumns(t *testing.T) {
	line := AutoFocusLine(gridStart)
	assert.Equal(t, len(strings.Split(Header, "|")), len(strings.Split(line.String(), "|")))
}
