package controller

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Preference is one user's static charging preference record, loaded from
// the preferences CSV at boot and optionally updated over the bus.
type Preference struct {
	UserID                  int
	MinimumSOC              float64
	MaxCostForCharging      float64
	DischargePriceThreshold float64
}

// LoadPreferences reads the user preference table. Expected columns:
// UserID, MinimumSOC, MaxCostForCharging, DischargePriceThreshold, with a
// header row.
func LoadPreferences(path string) (map[int]Preference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preferences: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("preferences: read %s: %w", path, err)
	}
	if len(records) < 2 {
		return map[int]Preference{}, nil
	}

	prefs := make(map[int]Preference, len(records)-1)
	for i, row := range records[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("preferences: row %d has %d columns, want 4", i+2, len(row))
		}
		userID, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("preferences: row %d: bad UserID %q: %w", i+2, row[0], err)
		}
		minSoC, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("preferences: row %d: bad MinimumSOC %q: %w", i+2, row[1], err)
		}
		maxCost, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("preferences: row %d: bad MaxCostForCharging %q: %w", i+2, row[2], err)
		}
		threshold, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("preferences: row %d: bad DischargePriceThreshold %q: %w", i+2, row[3], err)
		}
		prefs[userID] = Preference{
			UserID:                  userID,
			MinimumSOC:              minSoC,
			MaxCostForCharging:      maxCost,
			DischargePriceThreshold: threshold,
		}
	}
	return prefs, nil
}

// GridLoadProfile maps an hour of day ("HH:00", UTC) to whether the grid is
// under load during that hour.
type GridLoadProfile map[string]bool

// UnderLoad reports the profile entry for t's hour. Hours absent from the
// profile are not under load.
func (p GridLoadProfile) UnderLoad(t time.Time) bool {
	return p[t.UTC().Format("15:00")]
}

// LoadGridLoadProfile reads the daily grid load table. Expected columns:
// time (HH:00), grid_on_load (0|1), with a header row.
func LoadGridLoadProfile(path string) (GridLoadProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid load profile: open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("grid load profile: read %s: %w", path, err)
	}
	if len(records) < 2 {
		return GridLoadProfile{}, nil
	}

	profile := make(GridLoadProfile, len(records)-1)
	for i, row := range records[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("grid load profile: row %d has %d columns, want 2", i+2, len(row))
		}
		onLoad, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("grid load profile: row %d: bad grid_on_load %q: %w", i+2, row[1], err)
		}
		profile[row[0]] = onLoad != 0
	}
	return profile, nil
}
