package scheduler

import (
	"strconv"
	"strings"
	"time"
)

// LineTimeFormat is the DateTime column format.
const LineTimeFormat = "2006-01-02T15:04:05.000"

// Header is the first line of a text schedule.
const Header = "DateTime|Occupied|Target|Move|RA|Dec|ExposureTime|#Exposure|Filter|Bin2Fits|Guiding|Offset|CandidateID|ROIHeight|ROIWidth|ROIStartX|ROIStartY|BinningSize|Description"

// ScheduleLine is one planned activity. Lines are values; the builder never
// changes one after it is emitted.
type ScheduleLine struct {
	Start        time.Time `json:"start" yaml:"start"`
	Target       string    `json:"target" yaml:"target"`
	Move         bool      `json:"move" yaml:"move"`
	RA           *float64  `json:"ra" yaml:"ra"`
	Dec          *float64  `json:"dec" yaml:"dec"`
	ExposureTime float64   `json:"exposure_time" yaml:"exposure_time"`
	NumExposures int       `json:"num_exposures" yaml:"num_exposures"`
	Filter       string    `json:"filter" yaml:"filter"`
	Bin2Fits     bool      `json:"bin2fits" yaml:"bin2fits"`
	Guiding      bool      `json:"guiding" yaml:"guiding"`
	Offset       bool      `json:"offset" yaml:"offset"`
	CandidateID  *int64    `json:"candidate_id,omitempty" yaml:"candidate_id,omitempty"`
	ROIHeight    int       `json:"roi_height" yaml:"roi_height"`
	ROIWidth     int       `json:"roi_width" yaml:"roi_width"`
	ROIStartX    int       `json:"roi_start_x" yaml:"roi_start_x"`
	ROIStartY    int       `json:"roi_start_y" yaml:"roi_start_y"`
	BinningSize  int       `json:"binning_size" yaml:"binning_size"`
	Description  string    `json:"description" yaml:"description"`
}

// Duration is exposure time times count.
func (l ScheduleLine) Duration() time.Duration {
	return time.Duration(l.ExposureTime * float64(l.NumExposures) * float64(time.Second))
}

// IsFocus reports whether the line is a focus loop.
func (l ScheduleLine) IsFocus() bool { return l.Target == FocusTag }

// String renders the pipe-separated text form.
func (l ScheduleLine) String() string {
	id := "None"
	if l.CandidateID != nil {
		id = strconv.FormatInt(*l.CandidateID, 10)
	}
	fields := []string{
		l.Start.UTC().Format(LineTimeFormat),
		"1",
		l.Target,
		flag(l.Move),
		coord(l.RA),
		coord(l.Dec),
		strconv.FormatFloat(l.ExposureTime, 'f', -1, 64),
		strconv.Itoa(l.NumExposures),
		l.Filter,
		flag(l.Bin2Fits),
		flag(l.Guiding),
		flag(l.Offset),
		id,
		strconv.Itoa(l.ROIHeight),
		strconv.Itoa(l.ROIWidth),
		strconv.Itoa(l.ROIStartX),
		strconv.Itoa(l.ROIStartY),
		strconv.Itoa(l.BinningSize),
		`"` + l.Description + `"`,
	}
	return strings.Join(fields, "|")
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func coord(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// LineOptions carry the optional columns of GenericLine.
type LineOptions struct {
	Move        bool
	Guiding     bool
	Bin2Fits    bool
	Offset      bool
	CandidateID *int64
	BinningSize int
}

// GenericLine builds an observation line. Spaces in name become underscores.
func GenericLine(ra, dec *float64, filter string, start time.Time, name, description string, exposureTime float64, exposures int, opts LineOptions) ScheduleLine {
	binning := opts.BinningSize
	if binning == 0 {
		binning = 1
	}
	return ScheduleLine{
		Start:        start.UTC(),
		Target:       strings.ReplaceAll(name, " ", "_"),
		Move:         opts.Move,
		RA:           ra,
		Dec:          dec,
		ExposureTime: exposureTime,
		NumExposures: exposures,
		Filter:       filter,
		Bin2Fits:     opts.Bin2Fits,
		Guiding:      opts.Guiding,
		Offset:       opts.Offset,
		CandidateID:  opts.CandidateID,
		BinningSize:  binning,
		Description:  description,
	}
}

// AutoFocusLine is a focus loop starting at start. The telescope stays put
// and does not guide; RA and Dec are unset.
func AutoFocusLine(start time.Time) ScheduleLine {
	return ScheduleLine{
		Start:       start.UTC(),
		Target:      FocusTag,
		Filter:      "CLEAR",
		BinningSize: 1,
		Description: "Refocusing",
	}
}
