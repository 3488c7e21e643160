// wildtrack-train fits both model bundles from the CSV datasets: the
// five seasonal behavior classifiers plus their encoders, and the park
// recommender forest.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/cfg"
	"wildtrack/internal/dataset"
	"wildtrack/internal/ml"
	"wildtrack/internal/parks"
	"wildtrack/internal/seasonal"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	forestCfg := ml.ForestConfig{
		NumTrees: c.NumTrees,
		MaxDepth: c.MaxDepth,
		Seed:     c.Seed,
	}

	obs, err := dataset.LoadSeasonal(c.SeasonalCSV)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.SeasonalCSV).Msg("failed to load seasonal dataset")
	}
	log.Info().Int("rows", len(obs)).Str("path", c.SeasonalCSV).Msg("seasonal dataset loaded")

	manifest, err := seasonal.Train(obs, c.ModelDir, forestCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("seasonal training failed")
	}
	log.Info().
		Str("version", manifest.Version).
		Str("dir", c.ModelDir).
		Msg("seasonal bundle saved")

	rows, err := dataset.LoadParks(c.ParksCSV)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ParksCSV).Msg("failed to load parks dataset")
	}
	log.Info().Int("rows", len(rows)).Str("path", c.ParksCSV).Msg("parks dataset loaded")

	if err := parks.Train(rows, c.ParkModelPath, forestCfg); err != nil {
		log.Fatal().Err(err).Msg("park training failed")
	}
	log.Info().Str("path", c.ParkModelPath).Msg("park model saved")
}
