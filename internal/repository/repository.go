package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoPendingJobs is returned by ClaimPending when the queue is empty.
	ErrNoPendingJobs = errors.New("no pending jobs")
	// ErrDuplicateJob is returned when a document already has a job in
	// flight.
	ErrDuplicateJob = errors.New("document already has a pending seal job")
)
