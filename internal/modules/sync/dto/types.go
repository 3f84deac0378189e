package dto

import "time"

type SyncOutput struct {
	Status          string
	Message         string
	ContentCreated  int
	ContentUpdated  int
	AttemptsAdopted int
	Pushed          int
	BatchesFlushed  int
	PendingBatches  int
	UsedCache       bool
}

type FlushOutput struct {
	Delivered int
	Remaining int
}

type EnqueueOutput struct {
	BatchID   string
	Attempts  int
	Delivered bool
	Queued    bool
}

type StatusOutput struct {
	PendingBatches  int
	PendingAttempts int
	CachedVersion   int
	CachedAt        time.Time
}
