package engine

import "errors"

var (
	// ErrNoPositionManager indicates liquidity provisioning without a
	// configured position manager.
	ErrNoPositionManager = errors.New("engine: no position manager configured")

	// ErrInvalidDuration indicates a negative clock advance.
	ErrInvalidDuration = errors.New("engine: invalid duration")

	// ErrLaunchMismatch indicates a snapshot saved under a different launch
	// time than the configured one.
	ErrLaunchMismatch = errors.New("engine: snapshot launch time differs from settings")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("engine: required parameter is nil")
)
