package domain

import "errors"

var (
	// ErrNotFound indicates the intent does not exist.
	ErrNotFound = errors.New("notification intent not found")
	// ErrNoDueIntents indicates no intents are currently due for delivery.
	ErrNoDueIntents = errors.New("no due notification intents")
)
