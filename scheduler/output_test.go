package scheduler

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/maestro/errors"
)

func testSchedule() *Schedule {
	id := int64(7)
	ra, dec := 150.0, 20.0
	obs := GenericLine(&ra, &dec, "r", gridStart.Add(10*time.Minute), "M31", "M31: 30s by 2, r", 30, 2,
		LineOptions{Move: true, CandidateID: &id})
	first := GenericLine(&ra, &dec, "g", gridStart, "M31", "M31: 30s by 2, g", 30, 2,
		LineOptions{Move: true, CandidateID: &id})
	s := &Schedule{
		RunID:       "run-1",
		WindowStart: gridStart,
		WindowEnd:   gridStart.Add(8 * time.Hour),
		Lines:       []ScheduleLine{obs, AutoFocusLine(gridStart.Add(5 * time.Minute)), first},
	}
	s.Sort()
	return s
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{"JSON", FormatJSON},
		{" yml ", FormatYAML},
		{"yaml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("csv")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestScheduleSortAndQueries(t *testing.T) {
	s := testSchedule()

	require.Len(t, s.Lines, 3)
	assert.Equal(t, "g", s.Lines[0].Filter)
	assert.True(t, s.Lines[1].IsFocus())
	assert.Equal(t, "r", s.Lines[2].Filter)
	assert.Equal(t, 2, s.Observations())
	assert.Len(t, s.LinesFor(7), 2)
	assert.Empty(t, s.LinesFor(8))
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testSchedule().Write(&buf, FormatText))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "2026-10-15T03:00:00.000|1|M31|1|"))
	assert.Equal(t, "", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "2026-10-15T03:05:00.000|1|Focus|0|"))
	assert.Equal(t, "", lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "2026-10-15T03:10:00.000|1|M31|1|"))
}

func TestWriteJSONAndYAML(t *testing.T) {
	s := testSchedule()

	var jbuf bytes.Buffer
	require.NoError(t, s.Write(&jbuf, FormatJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	jlines := decoded["lines"].([]interface{})
	require.Len(t, jlines, 3)
	assert.Equal(t, "Refocusing", jlines[1].(map[string]interface{})["description"])
	assert.NotContains(t, jlines[1], "candidate_id")
	assert.Nil(t, jlines[1].(map[string]interface{})["ra"])

	var ybuf bytes.Buffer
	require.NoError(t, s.Write(&ybuf, FormatYAML))
	var ydecoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &ydecoded))
	assert.Equal(t, "run-1", ydecoded["run_id"])
	assert.Len(t, ydecoded["lines"], 3)

	assert.Error(t, s.Write(&ybuf, Format("csv")))
}

func TestWriteFile(t *testing.T) {
	s := testSchedule()
	name := FileName(s.WindowStart, FormatJSON)
	assert.Equal(t, "schedule_20261015.json", name)
	assert.Equal(t, "schedule_20261015.txt", FileName(s.WindowStart, ""))

	path := filepath.Join(t.TempDir(), "nested", name)
	require.NoError(t, s.WriteFile(path, FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)
}
