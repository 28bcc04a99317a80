// Package config provides Viper-based configuration loading for the roll
// tools and the dice server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/roll/internal/dice"
)

// EnvPrefix prefixes every environment override, e.g. ROLL_DICE_MAX_DICE.
const EnvPrefix = "ROLL"

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DiceConfig bounds evaluation work and sets the expression used for empty
// input.
type DiceConfig struct {
	MaxDice           int    `mapstructure:"max_dice"`
	MaxDepth          int    `mapstructure:"max_depth"`
	MaxInputLength    int    `mapstructure:"max_input_length"`
	DefaultExpression string `mapstructure:"default_expression"`
}

// Limits converts the configured bounds into evaluator limits.
func (d DiceConfig) Limits() dice.Limits {
	return dice.Limits{
		MaxDice:        d.MaxDice,
		MaxDepth:       d.MaxDepth,
		MaxInputLength: d.MaxInputLength,
	}
}

// TelnetConfig holds line server acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// GRPCConfig holds dice service listener settings.
type GRPCConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// ScriptingConfig holds Lua macro sandbox settings.
type ScriptingConfig struct {
	// InstructionLimit caps the Lua opcodes a macro may execute; 0 selects
	// the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// MacroDir holds the .lua files loaded as the server's macro library.
	// Empty disables macros on the line server.
	MacroDir string `mapstructure:"macro_dir"`
}

// TracingConfig holds OpenTelemetry exporter settings. An empty Endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dice      DiceConfig      `mapstructure:"dice"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateDice(c.Dice),
		validateTelnet(c.Telnet),
		validateGRPC(c.GRPC),
		validateScripting(c.Scripting),
		validateTracing(c.Tracing),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	if d.MaxDice < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_dice must be >= 1, got %d", d.MaxDice))
	}
	if d.MaxDepth < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_depth must be >= 1, got %d", d.MaxDepth))
	}
	if d.MaxInputLength < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_input_length must be >= 1, got %d", d.MaxInputLength))
	}
	if err := dice.Validate(d.DefaultExpression); err != nil {
		errs = append(errs, fmt.Sprintf("dice.default_expression: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGRPC(g GRPCConfig) error {
	if g.Port < 1 || g.Port > 65535 {
		return fmt.Errorf("grpc.port must be 1-65535, got %d", g.Port)
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateTracing(t TracingConfig) error {
	if t.Endpoint != "" && t.ServiceName == "" {
		return fmt.Errorf("tracing.service_name must not be empty when tracing.endpoint is set")
	}
	return nil
}

// New returns a Viper instance with defaults and ROLL_ environment overrides
// applied, reading path when it is non-empty.
//
// Postcondition: Returns a ready Viper or an error if path cannot be read.
func New(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("dice.max_dice", dice.DefaultLimits.MaxDice)
	v.SetDefault("dice.max_depth", dice.DefaultLimits.MaxDepth)
	v.SetDefault("dice.max_input_length", dice.DefaultLimits.MaxInputLength)
	v.SetDefault("dice.default_expression", dice.DefaultExpression)

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "5m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("scripting.instruction_limit", 0)
	v.SetDefault("scripting.macro_dir", "")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "roll")
}
