package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ebbcash/ebb/internal/common"
	"github.com/ebbcash/ebb/internal/reconcile"
	"github.com/ebbcash/ebb/internal/recurrence"
)

// LoadRecurrenceConfig reads detection thresholds from viper. Unset keys
// fall back to the engine defaults; keys that are set must hold sane
// values or loading fails.
func LoadRecurrenceConfig() (recurrence.Config, error) {
	cfg := recurrence.DefaultConfig()

	if viper.IsSet("recurrence.income_bucket_size") {
		cfg.IncomeBucketSize = viper.GetFloat64("recurrence.income_bucket_size")
		if cfg.IncomeBucketSize <= 0 {
			return recurrence.Config{}, fmt.Errorf("%w: recurrence.income_bucket_size must be positive", common.ErrInvalidConfig)
		}
	}
	if viper.IsSet("recurrence.expense_bucket_size") {
		cfg.ExpenseBucketSize = viper.GetFloat64("recurrence.expense_bucket_size")
		if cfg.ExpenseBucketSize <= 0 {
			return recurrence.Config{}, fmt.Errorf("%w: recurrence.expense_bucket_size must be positive", common.ErrInvalidConfig)
		}
	}
	if viper.IsSet("recurrence.min_occurrences") {
		cfg.MinGroupLen = viper.GetInt("recurrence.min_occurrences")
		if cfg.MinGroupLen < 2 {
			return recurrence.Config{}, fmt.Errorf("%w: recurrence.min_occurrences must be at least 2", common.ErrInvalidConfig)
		}
	}
	if viper.IsSet("recurrence.min_gap_share") {
		cfg.MinGapShare = viper.GetFloat64("recurrence.min_gap_share")
		if cfg.MinGapShare <= 0 || cfg.MinGapShare > 1 {
			return recurrence.Config{}, fmt.Errorf("%w: recurrence.min_gap_share must be in (0, 1]", common.ErrInvalidConfig)
		}
	}

	return cfg, nil
}

// LoadReconcileConfig reads planned-match tolerances from viper. Zero is a
// valid setting for both knobs: it demands an exact date or amount.
func LoadReconcileConfig() (reconcile.Config, error) {
	cfg := reconcile.DefaultConfig()

	if viper.IsSet("reconcile.day_tolerance") {
		cfg.DayTolerance = viper.GetInt("reconcile.day_tolerance")
		if cfg.DayTolerance < 0 {
			return reconcile.Config{}, fmt.Errorf("%w: reconcile.day_tolerance cannot be negative", common.ErrInvalidConfig)
		}
	}
	if viper.IsSet("reconcile.amount_tolerance") {
		cfg.AmountTolerance = viper.GetFloat64("reconcile.amount_tolerance")
		if cfg.AmountTolerance < 0 {
			return reconcile.Config{}, fmt.Errorf("%w: reconcile.amount_tolerance cannot be negative", common.ErrInvalidConfig)
		}
	}

	return cfg, nil
}

// PlanningConfig holds the goal scheduler defaults. Flags on the plan
// command override these per run.
type PlanningConfig struct {
	// SafetyBuffer is the balance floor the scheduler keeps free.
	SafetyBuffer float64
	// HorizonMonths bounds how far ahead goals may be scheduled.
	HorizonMonths int
}

// DefaultPlanningConfig returns the stock scheduler settings.
func DefaultPlanningConfig() PlanningConfig {
	return PlanningConfig{SafetyBuffer: 0, HorizonMonths: 12}
}

// LoadPlanningConfig reads scheduler defaults from viper.
func LoadPlanningConfig() (PlanningConfig, error) {
	cfg := DefaultPlanningConfig()

	if viper.IsSet("planning.safety_buffer") {
		cfg.SafetyBuffer = viper.GetFloat64("planning.safety_buffer")
		if cfg.SafetyBuffer < 0 {
			return PlanningConfig{}, fmt.Errorf("%w: planning.safety_buffer cannot be negative", common.ErrInvalidConfig)
		}
	}
	if viper.IsSet("planning.horizon_months") {
		cfg.HorizonMonths = viper.GetInt("planning.horizon_months")
		if cfg.HorizonMonths < 1 {
			return PlanningConfig{}, fmt.Errorf("%w: planning.horizon_months must be at least 1", common.ErrInvalidConfig)
		}
	}

	return cfg, nil
}
