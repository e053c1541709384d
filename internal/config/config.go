// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pumpcurve/internal/fee"
	"github.com/rovshanmuradov/pumpcurve/internal/market"
)

const EnvPrefix = "PUMPCURVE"

type Config struct {
	Authority          string `mapstructure:"authority"`
	FeeRecipient       string `mapstructure:"fee_recipient"`
	MigrationAuthority string `mapstructure:"migration_authority"`
	CreateFee          uint64 `mapstructure:"create_fee"`
	TakerFeeRate       uint32 `mapstructure:"taker_fee_rate"`
	MakerFeeRate       uint32 `mapstructure:"maker_fee_rate"`
	ProgramID          string `mapstructure:"program_id"`

	StateDir       string `mapstructure:"state_dir"` // пусто = состояние только в памяти
	LogFile        string `mapstructure:"log_file"`
	JournalFile    string `mapstructure:"journal_file"`
	DebugLogging   bool   `mapstructure:"debug_logging"`
	Workers        int    `mapstructure:"workers"`
	EventBuffer    int    `mapstructure:"event_buffer"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`

	// разобранные ключи, заполняются при валидации
	AuthorityKey          solana.PublicKey `mapstructure:"-"`
	FeeRecipientKey       solana.PublicKey `mapstructure:"-"`
	MigrationAuthorityKey solana.PublicKey `mapstructure:"-"`
	ProgramKey            solana.PublicKey `mapstructure:"-"`
}

const (
	DefaultCreateFee    = 20_000_000 // 0.02 SOL
	DefaultTakerFeeRate = 1_000_000  // 1%
	DefaultMakerFeeRate = 1_000_000  // 1%
	DefaultWorkers      = 4
	DefaultEventBuffer  = 1024
	DefaultLogFile      = "curvesim.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"create_fee":      DefaultCreateFee,
		"taker_fee_rate":  DefaultTakerFeeRate,
		"maker_fee_rate":  DefaultMakerFeeRate,
		"program_id":      market.DefaultProgramID.String(),
		"log_file":        DefaultLogFile,
		"workers":         DefaultWorkers,
		"event_buffer":    DefaultEventBuffer,
		"debug_logging":   false,
		"metrics_enabled": true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	var err error
	if cfg.AuthorityKey, err = parseKey("authority", cfg.Authority, true); err != nil {
		return err
	}
	if cfg.FeeRecipientKey, err = parseKey("fee_recipient", cfg.FeeRecipient, true); err != nil {
		return err
	}
	if cfg.MigrationAuthorityKey, err = parseKey("migration_authority", cfg.MigrationAuthority, false); err != nil {
		return err
	}
	if cfg.MigrationAuthorityKey.IsZero() {
		cfg.MigrationAuthorityKey = cfg.AuthorityKey
	}
	if cfg.ProgramKey, err = parseKey("program_id", cfg.ProgramID, true); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if !fee.ValidRate(cfg.TakerFeeRate) {
		return errors.New("invalid taker_fee_rate")
	}
	if !fee.ValidRate(cfg.MakerFeeRate) {
		return errors.New("invalid maker_fee_rate")
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	return nil
}

func parseKey(name, value string, required bool) (solana.PublicKey, error) {
	if value == "" {
		if required {
			return solana.PublicKey{}, fmt.Errorf("missing %s in configuration", name)
		}
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return key, nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrides := map[string]*string{
		"AUTHORITY":     &cfg.Authority,
		"FEE_RECIPIENT": &cfg.FeeRecipient,
		"STATE_DIR":     &cfg.StateDir,
		"LOG_FILE":      &cfg.LogFile,
		"JOURNAL_FILE":  &cfg.JournalFile,
	}
	for key, field := range overrides {
		if value := strings.TrimSpace(v.GetString(key)); value != "" {
			*field = value
		}
	}
	if v.IsSet("DEBUG_LOGGING") {
		cfg.DebugLogging = v.GetBool("DEBUG_LOGGING")
	}
}
