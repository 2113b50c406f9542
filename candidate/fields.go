package candidate

import (
	"fmt"
	"time"

	"github.com/teranos/maestro/errors"
)

// Columns lists every stored field in table order.
var Columns = []string{
	"ID", "Author", "DateAdded", "DateLastEdited", "CandidateName", "CandidateType",
	"Priority", "RemovedDt", "RemovedReason", "RejectedReason", "Night", "Updated",
	"StartObservability", "EndObservability", "TransitTime",
	"RA", "Dec", "dRA", "dDec", "Magnitude", "RMSE_RA", "RMSE_Dec", "Score", "nObs",
	"ApproachColor", "NumExposures", "ExposureTime", "Filter", "Guide",
	"Scheduled", "Observed", "Processed", "Submitted", "Notes",
	"CVal1", "CVal2", "CVal3", "CVal4", "CVal5", "CVal6", "CVal7", "CVal8", "CVal9", "CVal10",
}

var validFields = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c] = true
	}
	return m
}()

var timeColumns = map[string]bool{
	"DateAdded": true, "DateLastEdited": true, "RemovedDt": true, "Updated": true,
	"StartObservability": true, "EndObservability": true, "TransitTime": true,
}

// IsValidField reports whether name is a stored column.
func IsValidField(name string) bool { return validFields[name] }

// IsFieldProtected reports whether name may only be set by the store itself.
func IsFieldProtected(name string) bool {
	return name == "Author" || name == "DateAdded" || name == "ID"
}

// RemoveInvalidFields drops unknown columns, and protected ones unless
// allowProtected. It returns the dropped names.
func RemoveInvalidFields(fields map[string]interface{}, allowProtected bool) []string {
	var dropped []string
	for key := range fields {
		if !IsValidField(key) || (IsFieldProtected(key) && !allowProtected) {
			dropped = append(dropped, key)
		}
	}
	for _, key := range dropped {
		delete(fields, key)
	}
	return dropped
}

// Fields returns the candidate's non-NULL columns, excluding ID, as values
// ready for the driver.
func (c *Candidate) Fields() map[string]interface{} {
	f := map[string]interface{}{
		"CandidateName": c.CandidateName,
		"CandidateType": c.CandidateType,
		"Priority":      c.Priority,
		"NumExposures":  c.NumExposures,
		"ExposureTime":  c.ExposureTime,
		"Guide":         c.Guide,
		"Scheduled":     c.Scheduled,
		"Observed":      c.Observed,
		"Processed":     c.Processed,
		"Submitted":     c.Submitted,
	}
	if c.Author != "" {
		f["Author"] = c.Author
	}
	if !c.DateAdded.IsZero() {
		f["DateAdded"] = c.DateAdded
	}
	putTime(f, "DateLastEdited", c.DateLastEdited)
	putTime(f, "RemovedDt", c.RemovedDt)
	putTime(f, "Updated", c.Updated)
	putTime(f, "StartObservability", c.StartObservability)
	putTime(f, "EndObservability", c.EndObservability)
	putTime(f, "TransitTime", c.TransitTime)
	if c.RemovedReason != nil {
		f["RemovedReason"] = *c.RemovedReason
	}
	if c.RejectedReason != nil {
		f["RejectedReason"] = *c.RejectedReason
	}
	putString(f, "Night", c.Night)
	putString(f, "ApproachColor", c.ApproachColor)
	putString(f, "Filter", c.Filter)
	putString(f, "Notes", c.Notes)
	for i, v := range c.CVals {
		putString(f, fmt.Sprintf("CVal%d", i+1), v)
	}
	putFloat(f, "RA", c.RA)
	putFloat(f, "Dec", c.Dec)
	putFloat(f, "dRA", c.DRA)
	putFloat(f, "dDec", c.DDec)
	putFloat(f, "Magnitude", c.Magnitude)
	putFloat(f, "RMSE_RA", c.RMSERA)
	putFloat(f, "RMSE_Dec", c.RMSEDec)
	putFloat(f, "Score", c.Score)
	if c.NObs != nil {
		f["nObs"] = *c.NObs
	}
	return f
}

func putTime(f map[string]interface{}, key string, t *time.Time) {
	if t != nil {
		f[key] = *t
	}
}

func putString(f map[string]interface{}, key, v string) {
	if v != "" {
		f[key] = v
	}
}

func putFloat(f map[string]interface{}, key string, v *float64) {
	if v != nil {
		f[key] = *v
	}
}

// driverValue converts a field value to what the candidates table stores:
// times become TimeFormat text, booleans 0/1.
func driverValue(column string, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return FormatTime(val), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return FormatTime(*val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		if timeColumns[column] && val != "" {
			t, err := ParseTime(val)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", column)
			}
			return FormatTime(t), nil
		}
		return val, nil
	case int, int64, float64:
		return val, nil
	case *string:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case *float64:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	default:
		return nil, errors.Newf("field %s: unsupported value type %T", column, v)
	}
}
