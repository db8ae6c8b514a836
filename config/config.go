/*
Package config builds the application configuration.

PURPOSE:
  One explicit Config value is built in main and handed to every
  constructor. Nothing reads the environment after startup.

LOAD ORDER (later wins):
  1. Built-in defaults
  2. .env file in the working directory (ignored when absent)
  3. Environment variables
  4. YAML file named by PAYDAY_CONFIG

ENVIRONMENT:
  PORT, DB_PATH, ENV, LOG_LEVEL, PAYDAY_TIMEZONE, REPORTING_CURRENCY,
  DUE_SOON_DAYS, PAYDAY_FREQUENCY, PAYDAY_NEXT_DATE, SAVINGS_PER_PAYCHECK,
  SAVINGS_CURRENCY, RATE_FEED_URL, RATE_FEED_CRON, REMINDER_CRON,
  ROLLOVER_CRON, CORS_ORIGINS, PAYDAY_SEED, PAYDAY_CONFIG
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // time_zone must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/warp/payday-engine/generic"
)

type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`
	TimeZone string `yaml:"time_zone"`

	ReportingCurrency string `yaml:"reporting_currency"`
	DueSoonDays       int    `yaml:"due_soon_days"`

	Payday  PaydayConfig      `yaml:"payday"`
	Savings SavingsConfig     `yaml:"savings"`
	Charity CharityConfig     `yaml:"charity"`
	Rates   map[string]string `yaml:"rates"`

	RateFeedURL  string `yaml:"rate_feed_url"`
	RateFeedCron string `yaml:"rate_feed_cron"`
	ReminderCron string `yaml:"reminder_cron"`
	RolloverCron string `yaml:"rollover_cron"`

	CORSOrigins []string `yaml:"cors_origins"`
	SeedFile    string   `yaml:"seed_file"`
}

type PaydayConfig struct {
	Frequency string `yaml:"frequency"`
	NextDate  string `yaml:"next_date"`
}

type SavingsConfig struct {
	AmountPerPaycheck string `yaml:"amount_per_paycheck"`
	Currency          string `yaml:"currency"`
}

type CharityConfig struct {
	BaseAmount      string            `yaml:"base_amount"`
	IncrementAmount string            `yaml:"increment_amount"`
	Recurring       []RecurringConfig `yaml:"recurring"`
}

type RecurringConfig struct {
	Amount      string `yaml:"amount"`
	Currency    string `yaml:"currency"`
	Description string `yaml:"description"`
	Schedule    string `yaml:"schedule"`
}

// Default is the configuration before any environment or file is applied.
func Default() *Config {
	return &Config{
		Port:              8080,
		DBPath:            "payday.db",
		Env:               "development",
		LogLevel:          "info",
		TimeZone:          "UTC",
		ReportingCurrency: string(generic.USD),
		DueSoonDays:       7,
		Payday:            PaydayConfig{Frequency: string(generic.DefaultFrequency)},
		Savings:           SavingsConfig{AmountPerPaycheck: "100", Currency: string(generic.CAD)},
		Charity: CharityConfig{
			BaseAmount:      "100",
			IncrementAmount: "100",
			Recurring: []RecurringConfig{{
				Amount: "50", Currency: string(generic.USD), Description: "Monthly Donation", Schedule: "second-paycheck",
			}},
		},
		RateFeedCron: "0 17 * * 1-5",
		ReminderCron: "0 8 * * *",
		RolloverCron: "5 0 * * *",
		CORSOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// Load reads configuration from .env, the environment and PAYDAY_CONFIG,
// then validates it.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if path := os.Getenv("PAYDAY_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays a YAML file. Keys absent from the file keep their
// current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.Port, err = getEnvInt("PORT", c.Port); err != nil {
		return err
	}
	if c.DueSoonDays, err = getEnvInt("DUE_SOON_DAYS", c.DueSoonDays); err != nil {
		return err
	}
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.TimeZone = getEnv("PAYDAY_TIMEZONE", c.TimeZone)
	c.ReportingCurrency = getEnv("REPORTING_CURRENCY", c.ReportingCurrency)
	c.Payday.Frequency = getEnv("PAYDAY_FREQUENCY", c.Payday.Frequency)
	c.Payday.NextDate = getEnv("PAYDAY_NEXT_DATE", c.Payday.NextDate)
	c.Savings.AmountPerPaycheck = getEnv("SAVINGS_PER_PAYCHECK", c.Savings.AmountPerPaycheck)
	c.Savings.Currency = getEnv("SAVINGS_CURRENCY", c.Savings.Currency)
	c.RateFeedURL = getEnv("RATE_FEED_URL", c.RateFeedURL)
	c.RateFeedCron = getEnv("RATE_FEED_CRON", c.RateFeedCron)
	c.ReminderCron = getEnv("REMINDER_CRON", c.ReminderCron)
	c.RolloverCron = getEnv("ROLLOVER_CRON", c.RolloverCron)
	c.SeedFile = getEnv("PAYDAY_SEED", c.SeedFile)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.Port <= 0 || c.Port > 65535 {
		add("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		add("db_path is required")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		add("time_zone %q: %v", c.TimeZone, err)
	}
	if _, err := generic.ParseCurrency(c.ReportingCurrency); err != nil {
		add("reporting_currency: %v", err)
	}
	if c.DueSoonDays < 0 {
		add("due_soon_days must not be negative")
	}
	if _, err := generic.ParseFrequency(c.Payday.Frequency); err != nil {
		add("payday.frequency: %v", err)
	}
	if c.Payday.NextDate != "" {
		if _, err := generic.ParseDate(c.Payday.NextDate); err != nil {
			add("payday.next_date: %v", err)
		}
	}
	if _, err := generic.ParseAmount("savings.amount_per_paycheck", c.Savings.AmountPerPaycheck); err != nil {
		add("%v", err)
	}
	if _, err := generic.ParseCurrency(c.Savings.Currency); err != nil {
		add("savings.currency: %v", err)
	}
	for _, f := range []struct{ name, v string }{
		{"charity.base_amount", c.Charity.BaseAmount},
		{"charity.increment_amount", c.Charity.IncrementAmount},
	} {
		if _, err := generic.ParseAmount(f.name, f.v); err != nil {
			add("%v", err)
		}
	}
	for i, r := range c.Charity.Recurring {
		if _, err := generic.ParseAmount(fmt.Sprintf("charity.recurring[%d].amount", i), r.Amount); err != nil {
			add("%v", err)
		}
		if strings.TrimSpace(r.Description) == "" {
			add("charity.recurring[%d].description is required", i)
		}
	}
	if _, err := generic.ParseRateTable(c.Rates); err != nil {
		add("rates: %v", err)
	}
	for name, spec := range map[string]string{
		"rate_feed_cron": c.RateFeedCron,
		"reminder_cron":  c.ReminderCron,
		"rollover_cron":  c.RolloverCron,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			add("%s %q: %v", name, spec, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Location resolves time_zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns the system clock in the configured time zone.
func (c *Config) Clock() generic.Clock {
	return generic.SystemClock{Location: c.Location()}
}

func (c *Config) Reporting() generic.Currency {
	cur, err := generic.ParseCurrency(c.ReportingCurrency)
	if err != nil {
		return generic.USD
	}
	return cur
}

// RateTable returns the configured rates, or nil to use the defaults.
func (c *Config) RateTable() generic.RateTable {
	if len(c.Rates) == 0 {
		return nil
	}
	rates, err := generic.ParseRateTable(c.Rates)
	if err != nil {
		return nil
	}
	return rates
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
