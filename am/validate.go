package am

import (
	"github.com/robfig/cron/v3"
	"github.com/teranos/maestro/errors"
)

// OutputFormats lists the schedule file formats the builder can write.
var OutputFormats = []string{"txt", "json", "yaml"}

// CronParser is the parser used for nightly_cron, shared with pulse/schedule.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Observatory.Latitude < -90 || c.Observatory.Latitude > 90 {
		return errors.Newf("observatory.latitude must be within [-90, 90], got %f", c.Observatory.Latitude)
	}
	if c.Observatory.Longitude < -180 || c.Observatory.Longitude > 180 {
		return errors.Newf("observatory.longitude must be within [-180, 180], got %f", c.Observatory.Longitude)
	}
	if c.Observatory.SunsetAltitude > 0 || c.Observatory.SunsetAltitude < -18 {
		return errors.Newf("observatory.sunset_altitude must be within [-18, 0], got %f", c.Observatory.SunsetAltitude)
	}

	if c.DbOps.PollIntervalMS <= 0 {
		return errors.Newf("dbops.poll_interval_ms must be > 0, got %d", c.DbOps.PollIntervalMS)
	}
	if c.DbOps.DefaultRetries < 0 {
		return errors.Newf("dbops.default_retries must be >= 0, got %d", c.DbOps.DefaultRetries)
	}
	if c.DbOps.CommandBuffer <= 0 {
		return errors.Newf("dbops.command_buffer must be > 0, got %d", c.DbOps.CommandBuffer)
	}
	if c.DbOps.RatePerSecond < 0 {
		return errors.Newf("dbops.rate_per_second must be >= 0, got %f", c.DbOps.RatePerSecond)
	}

	if c.Scheduler.ResolutionMinutes <= 0 {
		return errors.Newf("scheduler.resolution_minutes must be > 0, got %d", c.Scheduler.ResolutionMinutes)
	}
	if c.Scheduler.FocusMinutes < 0 {
		return errors.Newf("scheduler.focus_minutes must be >= 0, got %d", c.Scheduler.FocusMinutes)
	}
	if !validOutputFormat(c.Scheduler.OutputFormat) {
		return errors.WithHintf(
			errors.Newf("scheduler.output_format %q is not supported", c.Scheduler.OutputFormat),
			"use one of %v", OutputFormats)
	}
	if c.Scheduler.NightlyCron != "" {
		if _, err := CronParser.Parse(c.Scheduler.NightlyCron); err != nil {
			return errors.Wrapf(err, "scheduler.nightly_cron %q", c.Scheduler.NightlyCron)
		}
	}

	for name, tc := range c.Types {
		if tc.NumObs < 0 {
			return errors.Newf("types.%s.num_obs must be >= 0, got %d", name, tc.NumObs)
		}
		if tc.MinMinutesBetweenObs < 0 || tc.DowntimeMinutesAfterObs < 0 || tc.MaxMinutesWithoutFocus < 0 {
			return errors.Newf("types.%s minute tunables must be >= 0", name)
		}
		if tc.MinHoursVisible < 0 {
			return errors.Newf("types.%s.min_hours_visible must be >= 0, got %f", name, tc.MinHoursVisible)
		}
	}
	return nil
}

func validOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}
