// Package racesim drives a running results service with a generated race:
// it imports a roster, submits start and finish reads concurrently and checks
// the served leaderboards against a local computation over the same data.
package racesim

import "time"

// Config holds configuration for a simulated race.
type Config struct {
	BaseURL       string        // Base URL of the service
	Race          string        // Race id; generated when empty
	Date          string        // Race day, YYYY-MM-DD
	Participants  int           // Registered entrants to generate
	Seed          uint64        // Generator seed; equal seeds give equal races
	Workers       int           // Concurrent read submitters
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for results to catch up
	StartReader   string
	FinishReader  string
	OutputFile    string // Scenario dump; zstd-compressed when it ends in .zst
	InputFile     string // Replay a dumped scenario instead of generating one
	Verbose       bool
}

// Stats holds run statistics.
type Stats struct {
	ReadsGenerated int
	ReadsAccepted  int
	ReadsDuplicate int
	ReadsFailed    int
	Retries        int
	Ranked         int
	StartTime      time.Time
	Duration       time.Duration
}

// Entrant is a roster entry as sent to the service.
type Entrant struct {
	TagID     string `json:"tag_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age,omitempty"`
	Gender    string `json:"gender,omitempty"`
}

// Read is a checkpoint read as sent to the service.
type Read struct {
	Reader string `json:"reader"`
	TagID  string `json:"tag_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Scenario is one generated race.
type Scenario struct {
	Race   string    `json:"race"`
	Roster []Entrant `json:"roster"`
	Reads  []Read    `json:"reads"`
}
