package config

import "errors"

var (
	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidYAML indicates the configuration file is not valid YAML.
	ErrInvalidYAML = errors.New("config: invalid yaml")

	// ErrInvalidAddress indicates an address field is neither hex nor "@label".
	ErrInvalidAddress = errors.New("config: invalid address")

	// ErrInvalidDecimals indicates an unusable token decimal count.
	ErrInvalidDecimals = errors.New("config: invalid decimals")

	// ErrInvalidDuration indicates a duration field does not parse.
	ErrInvalidDuration = errors.New("config: invalid duration")

	// ErrInvalidRates indicates fee rates that sum above 10000 basis points.
	ErrInvalidRates = errors.New("config: invalid fee rates")

	// ErrInvalidTiers indicates an empty or malformed staking tier table.
	ErrInvalidTiers = errors.New("config: invalid staking tiers")

	// ErrInvalidRewards indicates unusable reward settings.
	ErrInvalidRewards = errors.New("config: invalid reward settings")
)
