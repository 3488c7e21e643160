// park-recommender suggests up to three parks for a visitor interest
// profile. It takes one positional argument holding a JSON object of
// feature-name to value and prints a JSON array of {park, score} pairs.
// All errors are reported as a JSON object with exit code 0.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/cfg"
	"wildtrack/internal/parks"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	c, err := cfg.Load()
	if err != nil {
		printError(fmt.Sprintf("config load failed: %v", err))
		return
	}

	if len(os.Args) != 2 {
		printError("usage: park-recommender '<json feature object>'")
		return
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(os.Args[1]), &raw); err != nil {
		printError(fmt.Sprintf("invalid input: %v", err))
		return
	}

	rec := parks.New(c.ParkModelPath)
	suggestions, err := rec.Recommend(parks.Coerce(raw))
	if err != nil {
		printError(err.Error())
		return
	}

	printJSON(suggestions)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode output")
	}
}

func printError(msg string) {
	printJSON(map[string]string{"error": msg})
}
