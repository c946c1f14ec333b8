package models

// SweepResult summarizes one pass of the Amazon refresh sweep
type SweepResult struct {
	RunID           string `json:"run_id,omitempty"`
	Skipped         bool   `json:"skipped"`
	Reason          string `json:"reason,omitempty"`
	RelationsFound  int    `json:"relations_found"`
	RelationsQueued int    `json:"relations_queued"`
	ProductsFound   int    `json:"products_found"`
	ProductsQueued  int    `json:"products_queued"`
}

// QueueInfo describes the state of one persisted queue
type QueueInfo struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
	Locked bool   `json:"locked"`
}

// QueueStatus is the state of the Amazon refresh queues
type QueueStatus struct {
	Configured bool        `json:"configured"`
	Queues     []QueueInfo `json:"queues"`
}
