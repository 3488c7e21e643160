// Package dataset loads the offline training tables. Training is a
// human-supervised step, so any malformed row or missing column is a
// hard error with enough context to fix the file.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Observation is one labeled species-month training row.
type Observation struct {
	Species           string
	Month             int
	MigrationTendency string
	WeatherPreference string
	BreedingSeason    bool
	ActivityLevel     string
	ThreatLevel       string
	PrimaryBehavior   string
	PopulationPeak    bool
}

// SeasonalColumns is the required header of the seasonal training CSV,
// in order.
var SeasonalColumns = []string{
	"species", "month", "migration_tendency", "weather_preference",
	"breeding_season", "activity_level", "threat_level",
	"primary_behavior", "population_peak",
}

// ParkFeatureOrder is the fixed feature order of the park recommender.
// It must match the order used at training time exactly.
var ParkFeatureOrder = []string{
	"mammals", "birds", "reptiles", "amphibians", "insects",
	"safari", "camping", "birdwatching", "hiking",
	"forest", "wetland", "mountain", "coastal",
	"family", "adventure", "relaxation",
}

// ParkRow is one labeled park training row.
type ParkRow struct {
	ParkName string
	Features []float64 // in ParkFeatureOrder
}

// LoadSeasonal reads the seasonal training table.
func LoadSeasonal(path string) ([]Observation, error) {
	records, header, err := readAll(path)
	if err != nil {
		return nil, err
	}

	col, err := columnIndex(header, SeasonalColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	obs := make([]Observation, 0, len(records))
	for i, rec := range records {
		line := i + 2 // header is line 1

		month, err := strconv.Atoi(strings.TrimSpace(rec[col["month"]]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid month %q", path, line, rec[col["month"]])
		}
		breeding, err := parseBool(rec[col["breeding_season"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid breeding_season %q", path, line, rec[col["breeding_season"]])
		}
		peak, err := parseBool(rec[col["population_peak"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid population_peak %q", path, line, rec[col["population_peak"]])
		}

		o := Observation{
			Species:           strings.TrimSpace(rec[col["species"]]),
			Month:             month,
			MigrationTendency: strings.TrimSpace(rec[col["migration_tendency"]]),
			WeatherPreference: strings.TrimSpace(rec[col["weather_preference"]]),
			BreedingSeason:    breeding,
			ActivityLevel:     strings.TrimSpace(rec[col["activity_level"]]),
			ThreatLevel:       strings.TrimSpace(rec[col["threat_level"]]),
			PrimaryBehavior:   strings.TrimSpace(rec[col["primary_behavior"]]),
			PopulationPeak:    peak,
		}
		if o.Species == "" {
			return nil, fmt.Errorf("%s line %d: empty species", path, line)
		}
		obs = append(obs, o)
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("%s: no training rows", path)
	}
	return obs, nil
}

// LoadParks reads the park recommender training table. The header must
// contain park_name plus every feature in ParkFeatureOrder.
func LoadParks(path string) ([]ParkRow, error) {
	records, header, err := readAll(path)
	if err != nil {
		return nil, err
	}

	required := append([]string{"park_name"}, ParkFeatureOrder...)
	col, err := columnIndex(header, required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows := make([]ParkRow, 0, len(records))
	for i, rec := range records {
		line := i + 2

		row := ParkRow{
			ParkName: strings.TrimSpace(rec[col["park_name"]]),
			Features: make([]float64, len(ParkFeatureOrder)),
		}
		if row.ParkName == "" {
			return nil, fmt.Errorf("%s line %d: empty park_name", path, line)
		}
		for j, feature := range ParkFeatureOrder {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col[feature]]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: invalid %s %q", path, line, feature, rec[col[feature]])
			}
			row.Features[j] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no training rows", path)
	}
	return rows, nil
}

func readAll(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open training data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(all) < 1 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}
	return all[1:], header, nil
}

func columnIndex(header, required []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return col, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}
