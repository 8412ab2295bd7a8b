package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/neighborhood-cli/internal/failure"
	"github.com/sells-group/neighborhood-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Mapbox    MapboxConfig    `yaml:"mapbox" mapstructure:"mapbox"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Census    CensusConfig    `yaml:"census" mapstructure:"census"`
	Tiger     TigerConfig     `yaml:"tiger" mapstructure:"tiger"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Render    RenderConfig    `yaml:"render" mapstructure:"render"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// MapboxConfig holds Mapbox Geocoding API settings.
type MapboxConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NominatimConfig holds reverse-geocoding settings.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	Email     string `yaml:"email" mapstructure:"email"`
}

// AnthropicConfig holds Anthropic API settings for query interpretation.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CensusConfig holds Census Data API settings and the variable reference table.
type CensusConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	VariablesFile string `yaml:"variables_file" mapstructure:"variables_file"`
}

// TigerConfig configures cartographic boundary downloads.
type TigerConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Year       int    `yaml:"year" mapstructure:"year"`
	Resolution string `yaml:"resolution" mapstructure:"resolution"`
	TempDir    string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// PipelineConfig configures stage defaults.
type PipelineConfig struct {
	Level                   string  `yaml:"level" mapstructure:"level"`
	LookupRadiusMiles       float64 `yaml:"lookup_radius_miles" mapstructure:"lookup_radius_miles"`
	DemographicsRadiusMiles float64 `yaml:"demographics_radius_miles" mapstructure:"demographics_radius_miles"`
}

// HTTPConfig configures the shared HTTP client.
type HTTPConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// RenderConfig configures output artifacts.
type RenderConfig struct {
	MapFile       string `yaml:"map_file" mapstructure:"map_file"`
	HistogramFile string `yaml:"histogram_file" mapstructure:"histogram_file"`
	HistogramBins int    `yaml:"histogram_bins" mapstructure:"histogram_bins"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envAliases binds conventional credential variable names alongside the
// prefixed ones. The prefixed name wins when both are set.
var envAliases = map[string][]string{
	"mapbox.token":  {"NEIGHBORHOOD_MAPBOX_TOKEN", "MAPBOX_ACCESS_TOKEN"},
	"anthropic.key": {"NEIGHBORHOOD_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"},
	"census.key":    {"NEIGHBORHOOD_CENSUS_KEY", "CENSUS_API_KEY"},
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// .env is optional; existing environment variables are not overridden.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NEIGHBORHOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("mapbox.base_url", "https://api.mapbox.com")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "neighborhood-cli/1.0")
	v.SetDefault("nominatim.email", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.variables_file", "acs5_variables.csv")
	v.SetDefault("tiger.base_url", "https://www2.census.gov/geo/tiger")
	v.SetDefault("tiger.year", 2022)
	v.SetDefault("tiger.resolution", "500k")
	v.SetDefault("tiger.temp_dir", "")
	v.SetDefault("pipeline.level", string(model.LevelBlockGroup))
	v.SetDefault("pipeline.lookup_radius_miles", 3.0)
	v.SetDefault("pipeline.demographics_radius_miles", 5.0)
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.user_agent", "neighborhood-cli/1.0")
	v.SetDefault("render.map_file", "map.html")
	v.SetDefault("render.histogram_file", "histogram.html")
	v.SetDefault("render.histogram_bins", 20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present. Missing
// credentials are reported as a config failure.
func (c *Config) Validate(mode string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	lookup := func() {
		require(c.Mapbox.Token != "", "mapbox.token is required (MAPBOX_ACCESS_TOKEN)")
		require(c.Nominatim.UserAgent != "", "nominatim.user_agent is required")
		require(c.Tiger.Year > 0, "tiger.year must be > 0")
		_, ok := model.ParseGeographyLevel(c.Pipeline.Level)
		require(ok, "pipeline.level must be \"block group\" or \"tract\"")
	}
	interpreter := func() {
		require(c.Anthropic.Key != "", "anthropic.key is required (ANTHROPIC_API_KEY)")
		require(c.Census.VariablesFile != "", "census.variables_file is required")
	}

	switch mode {
	case "lookup":
		lookup()
		require(c.Pipeline.LookupRadiusMiles > 0, "pipeline.lookup_radius_miles must be > 0")
	case "demographics":
		lookup()
		interpreter()
		require(c.Pipeline.DemographicsRadiusMiles > 0, "pipeline.demographics_radius_miles must be > 0")
	case "interpret":
		interpreter()
	case "serve":
		lookup()
		interpreter()
		require(c.Pipeline.DemographicsRadiusMiles > 0, "pipeline.demographics_radius_miles must be > 0")
		require(c.Server.Port > 0, "server.port must be > 0")
	case "variables":
		require(c.Census.VariablesFile != "", "census.variables_file is required")
	default:
		return failure.Newf(failure.KindConfig, "config", "unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return failure.New(failure.KindConfig, "config", eris.New(strings.Join(problems, "; ")))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
