package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelDir      string
	ParkModelPath string
	SeasonalCSV   string
	ParksCSV      string
	DataPath      string
	MetricsPort   int
	ServerPort    int
	NumTrees      int
	MaxDepth      int
	Seed          int64
	ModelBaseURL  string
	SyncTimeout   time.Duration
}

type ConfigFile struct {
	Models struct {
		Dir         string `yaml:"dir"`
		ParkModel   string `yaml:"parkModel"`
		BaseURL     string `yaml:"baseURL"`
		SyncTimeout string `yaml:"syncTimeout"`
	} `yaml:"models"`

	Training struct {
		SeasonalCSV string `yaml:"seasonalCSV"`
		ParksCSV    string `yaml:"parksCSV"`
		NumTrees    int    `yaml:"numTrees"`
		MaxDepth    int    `yaml:"maxDepth"`
		Seed        int64  `yaml:"seed"`
	} `yaml:"training"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		ServerPort  int    `yaml:"serverPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	syncTimeout, err := time.ParseDuration(config.Models.SyncTimeout)
	if err != nil {
		syncTimeout = 30 * time.Second
	}

	settings := Settings{
		ModelDir:      getEnvOrDefault("MODEL_DIR", stringOrDefault(config.Models.Dir, "models")),
		ParkModelPath: getEnvOrDefault("PARK_MODEL_PATH", config.Models.ParkModel),
		SeasonalCSV:   getEnvOrDefault("SEASONAL_CSV", config.Training.SeasonalCSV),
		ParksCSV:      getEnvOrDefault("PARKS_CSV", config.Training.ParksCSV),
		DataPath:      getEnvOrDefault("DATA_PATH", config.System.DataPath),
		MetricsPort:   getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 9090),
		ServerPort:    getIntFromEnvOrConfig("SERVER_PORT", config.System.ServerPort, 8080),
		NumTrees:      getIntFromEnvOrConfig("NUM_TREES", config.Training.NumTrees, 100),
		MaxDepth:      getIntFromEnvOrConfig("MAX_DEPTH", config.Training.MaxDepth, 10),
		Seed:          getInt64FromEnvOrConfig("SEED", config.Training.Seed, 42),
		ModelBaseURL:  getEnvOrDefault("MODEL_BASE_URL", config.Models.BaseURL),
		SyncTimeout:   syncTimeout,
	}

	if settings.ParkModelPath == "" {
		settings.ParkModelPath = settings.ModelDir + "/park_model.json"
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	modelDir := getEnvOrDefault("MODEL_DIR", "models")

	settings := Settings{
		ModelDir:      modelDir,
		ParkModelPath: getEnvOrDefault("PARK_MODEL_PATH", modelDir+"/park_model.json"),
		SeasonalCSV:   getEnvOrDefault("SEASONAL_CSV", "data/animal_seasonal_data.csv"),
		ParksCSV:      getEnvOrDefault("PARKS_CSV", "data/park_preferences.csv"),
		DataPath:      os.Getenv("DATA_PATH"), // optional
		MetricsPort:   getIntOrDefault("METRICS_PORT", 9090),
		ServerPort:    getIntOrDefault("SERVER_PORT", 8080),
		NumTrees:      getIntOrDefault("NUM_TREES", 100),
		MaxDepth:      getIntOrDefault("MAX_DEPTH", 10),
		Seed:          getInt64OrDefault("SEED", 42),
		ModelBaseURL:  os.Getenv("MODEL_BASE_URL"), // optional
		SyncTimeout:   getDurationOrDefault("SYNC_TIMEOUT", 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func stringOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}

	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.ServerPort < 1024 || settings.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1024 and 65535, got %d", settings.ServerPort)
	}
	if settings.ServerPort == settings.MetricsPort {
		return fmt.Errorf("server port and metrics port must differ, both are %d", settings.ServerPort)
	}

	if settings.NumTrees <= 0 || settings.NumTrees > 1000 {
		return fmt.Errorf("number of trees must be between 1 and 1000, got %d", settings.NumTrees)
	}
	if settings.MaxDepth <= 0 || settings.MaxDepth > 100 {
		return fmt.Errorf("max depth must be between 1 and 100, got %d", settings.MaxDepth)
	}

	if settings.SyncTimeout < time.Second || settings.SyncTimeout > 5*time.Minute {
		return fmt.Errorf("sync timeout must be between 1s and 5m, got %v", settings.SyncTimeout)
	}

	return nil
}
