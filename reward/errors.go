package reward

import "errors"

var (
	// ErrInvalidAmount indicates a zero or missing amount.
	ErrInvalidAmount = errors.New("reward: invalid amount")

	// ErrInvalidRewardType indicates an unknown category or a grant blocked by the team cap.
	ErrInvalidRewardType = errors.New("reward: invalid reward type")

	// ErrInvalidRewardAmount indicates a claim above the claimable balance.
	ErrInvalidRewardAmount = errors.New("reward: invalid reward amount")

	// ErrZeroAddress indicates the zero address as holder.
	ErrZeroAddress = errors.New("reward: zero address")

	// ErrUnauthorized indicates a grant from a caller that is not an operator.
	ErrUnauthorized = errors.New("reward: unauthorized")

	// ErrInsufficientPoolBalance indicates the reward pool cannot cover a payout.
	ErrInsufficientPoolBalance = errors.New("reward: insufficient pool balance")

	// ErrInvalidOptions indicates unusable accountant options.
	ErrInvalidOptions = errors.New("reward: invalid options")

	// ErrNilParam indicates a required collaborator was nil.
	ErrNilParam = errors.New("reward: nil parameter")
)
