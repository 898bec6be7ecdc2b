package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrStaleEvent        = errors.New("event older than current match state")
	ErrUnknownMatch      = errors.New("unknown match")
	ErrMatchRetired      = errors.New("match retired")
	ErrMatchFinished     = errors.New("match finished")
	ErrExposureExceeded  = errors.New("exposure limit exceeded")
	ErrBelowMinimumStake = errors.New("stake below minimum")
	ErrCooldown          = errors.New("match in trade cooldown")
	ErrTradingHalted     = errors.New("trading halted")
)
