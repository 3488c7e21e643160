// seasonal-service is the command line front end for the seasonal
// behavior predictor. Results are printed as JSON on standard output;
// logs and diagnostics go to standard error so the output stays
// machine-readable. Errors are reported as JSON objects, never as a
// nonzero exit code.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"wildtrack/internal/cfg"
	"wildtrack/internal/seasonal"
	"wildtrack/internal/storage"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	c, err := cfg.Load()
	if err != nil {
		printError(fmt.Sprintf("config load failed: %v", err))
		return
	}

	if len(os.Args) < 2 {
		printError("no command given, expected predict, batch_predict, get_supported_species or test")
		return
	}

	svc := seasonal.New(c.ModelDir)

	var store *storage.Store
	if c.DataPath != "" {
		store, err = storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
			store = nil
		} else {
			defer store.Close()
		}
	}

	switch os.Args[1] {
	case "predict":
		runPredict(svc, store, os.Args[2:])
	case "batch_predict":
		runBatchPredict(svc, store)
	case "get_supported_species":
		printJSON(svc.SupportedSpecies())
	case "test":
		runDiagnostics(svc)
	default:
		printError(fmt.Sprintf("unknown command %q", os.Args[1]))
	}
}

func runPredict(svc *seasonal.Service, store *storage.Store, args []string) {
	if len(args) < 2 {
		printError("usage: predict <species> <month> [migration_tendency] [weather_preference]")
		return
	}

	month, err := strconv.Atoi(args[1])
	if err != nil {
		printError(fmt.Sprintf("month must be an integer, got %q", args[1]))
		return
	}

	req := seasonal.Request{Species: args[0], Month: month}
	if len(args) > 2 {
		req.MigrationTendency = args[2]
	}
	if len(args) > 3 {
		req.WeatherPreference = args[3]
	}

	pred := svc.Predict(req)
	logPrediction(store, req, pred)
	printJSON(pred)
}

// runBatchPredict reads a JSON array of request objects from standard
// input and prints one result per element, preserving order.
func runBatchPredict(svc *seasonal.Service, store *storage.Store) {
	var requests []seasonal.Request
	if err := json.NewDecoder(os.Stdin).Decode(&requests); err != nil {
		printError(fmt.Sprintf("invalid batch input: %v", err))
		return
	}

	results := svc.BatchPredict(requests)
	for i, res := range results {
		logPrediction(store, requests[i], res.Prediction)
	}
	printJSON(results)
}

func logPrediction(store *storage.Store, req seasonal.Request, pred seasonal.Prediction) {
	if store == nil {
		return
	}
	rec := storage.Record{
		Species:    req.Species,
		Month:      req.Month,
		Ts:         time.Now(),
		Prediction: pred,
	}
	if err := store.StorePrediction(rec); err != nil {
		log.Warn().Err(err).Str("species", req.Species).Msg("failed to persist prediction")
	}
}

// runDiagnostics prints a human-readable service health report on
// standard error.
func runDiagnostics(svc *seasonal.Service) {
	fmt.Fprintln(os.Stderr, "seasonal predictor diagnostics")
	fmt.Fprintf(os.Stderr, "  models loaded: %v\n", svc.Loaded())

	if m := svc.Manifest(); m != nil {
		fmt.Fprintf(os.Stderr, "  bundle version: %s\n", m.Version)
		fmt.Fprintf(os.Stderr, "  training samples: %d\n", m.TrainingSamples)
		for name, acc := range m.Accuracy {
			fmt.Fprintf(os.Stderr, "  %s accuracy: %.3f\n", name, acc)
		}
	}

	species := svc.SupportedSpecies()
	fmt.Fprintf(os.Stderr, "  supported species: %d\n", len(species))

	if len(species) > 0 {
		pred := svc.Predict(seasonal.Request{Species: species[0], Month: 6})
		fmt.Fprintf(os.Stderr, "  sample prediction for %s/6: %s (%s)\n",
			species[0], pred.PrimaryBehavior, pred.Status)
	} else {
		pred := svc.Predict(seasonal.Request{Species: "Unknown", Month: 6})
		fmt.Fprintf(os.Stderr, "  fallback prediction: %s (%s)\n",
			pred.PrimaryBehavior, pred.Status)
	}
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
