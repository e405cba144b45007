package staking

import "errors"

var (
	// ErrInvalidAmount indicates a deposit that matches no tier exactly.
	ErrInvalidAmount = errors.New("staking: invalid amount")

	// ErrUnderLockPeriod indicates a round ended before its lock elapsed.
	ErrUnderLockPeriod = errors.New("staking: lp under staking period")

	// ErrRoundNotFound indicates an unknown (holder, round) pair.
	ErrRoundNotFound = errors.New("staking: round not found")

	// ErrNoReferrer indicates a deposit by a holder with no registered referrer.
	ErrNoReferrer = errors.New("staking: referrer not registered")

	// ErrReferrerAlreadySet indicates an attempt to overwrite a referrer.
	ErrReferrerAlreadySet = errors.New("staking: referrer already set")

	// ErrInvalidReferrer indicates a self-referral or a referral cycle.
	ErrInvalidReferrer = errors.New("staking: invalid referrer")

	// ErrZeroAddress indicates the zero address as holder or referrer.
	ErrZeroAddress = errors.New("staking: zero address")

	// ErrInvalidTiers indicates an unusable tier table.
	ErrInvalidTiers = errors.New("staking: invalid tier table")
)
