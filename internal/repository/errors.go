package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a versioned write lost a race with another writer.
	ErrConflict = errors.New("state already changed")

	// ErrInsufficientBalance is returned when a conditional debit would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicate is returned when a unique reference is already recorded.
	ErrDuplicate = errors.New("duplicate entity")
)
