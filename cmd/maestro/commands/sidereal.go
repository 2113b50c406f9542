package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/maestro/sky"
	"github.com/teranos/maestro/sym"
)

// SiderealCmd prints local sidereal time, the coming night, and optionally
// a transit time.
var SiderealCmd = &cobra.Command{
	Use:   "sidereal",
	Short: sym.Star + " Show local sidereal time and tonight's window",
	Long: sym.Star + ` sidereal — sky clock for the configured observatory

Examples:
  maestro sidereal              # LMST now and the coming night
  maestro sidereal --ra 150     # also the meridian transit of RA 150 deg
  maestro sidereal --dec 20     # with --ra, the static observability window`,
	RunE: runSidereal,
}

var (
	siderealRAFlag  float64
	siderealDecFlag float64
	siderealAtFlag  string
)

func init() {
	SiderealCmd.Flags().Float64Var(&siderealRAFlag, "ra", -1, "Right ascension in degrees")
	SiderealCmd.Flags().Float64Var(&siderealDecFlag, "dec", 0, "Declination in degrees (with --ra)")
	SiderealCmd.Flags().StringVar(&siderealAtFlag, "at", "", "Evaluate at this instant (RFC3339) instead of now")
}

func runSidereal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	observer, err := sky.NewObserver(cfg.Observatory)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if siderealAtFlag != "" {
		if now, err = time.Parse(time.RFC3339, siderealAtFlag); err != nil {
			return err
		}
		now = now.UTC()
	}

	loc := observer.Location
	lst := sky.CurrentSiderealTime(loc, now)
	h, m, s := sky.FormatHMS(lst)
	fmt.Printf("Observatory:  %s (%.4f, %.4f)\n", cfg.Observatory.Name, loc.Latitude, loc.Longitude)
	fmt.Printf("UTC:          %s\n", now.Format(time.RFC3339))
	fmt.Printf("LMST:         %02dh%02dm%04.1fs (%.4f deg)\n", h, m, s, lst)

	if night, ok := observer.Night(now); ok {
		fmt.Printf("Night:        %s to %s (%s)\n",
			night.Start.Format(time.RFC3339), night.End.Format(time.RFC3339), night.Duration().Round(time.Minute))
	} else {
		fmt.Println("Night:        none (sun does not reach the configured altitude)")
	}

	if !cmd.Flags().Changed("ra") {
		return nil
	}
	fmt.Printf("Transit:      %s\n", sky.TransitTime(siderealRAFlag, loc, now).Format(time.RFC3339))
	if cmd.Flags().Changed("dec") {
		w := observer.Box.StaticWindow(siderealRAFlag, siderealDecFlag, loc, now)
		if w.IsZero() {
			fmt.Println("Observable:   never (outside the horizon box)")
		} else {
			fmt.Printf("Observable:   %s to %s\n", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
		}
	}
	return nil
}
