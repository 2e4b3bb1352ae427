// Package progress defines the events emitted while a crawl runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageRunDone      Stage = "RUN_DONE"
	StageRunError     Stage = "RUN_ERROR"
	StageFetchDone    Stage = "FETCH_DONE"
	StageFetchFailed  Stage = "FETCH_FAILED"
	StageRejected     Stage = "REQUEST_REJECTED"
	StageItemized     Stage = "PAGE_ITEMIZED"
	StageBatchFlushed Stage = "BATCH_FLUSHED"
	StageBlacklisted  Stage = "DOMAIN_BLACKLISTED"
)

// Stages lists every stage in pipeline order.
func Stages() []Stage {
	return []Stage{
		StageRunStart, StageFetchDone, StageFetchFailed, StageRejected,
		StageItemized, StageBatchFlushed, StageBlacklisted, StageRunDone, StageRunError,
	}
}

// Milestones lists the stages that describe what the crawl found or how the
// run ended, as opposed to per-request traffic.
func Milestones() []Stage {
	return []Stage{
		StageRunStart, StageRunDone, StageRunError,
		StageItemized, StageBatchFlushed, StageBlacklisted,
	}
}

// Milestone reports whether s is one of Milestones. The hub never drops them.
func (s Stage) Milestone() bool {
	switch s {
	case StageRunStart, StageRunDone, StageRunError,
		StageItemized, StageBatchFlushed, StageBlacklisted:
		return true
	default:
		return false
	}
}

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single step of crawl progress.
type Event struct {
	// RunID identifies the crawl run using the 16-byte UUID form.
	RunID [16]byte `json:"-"`
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time `json:"ts"`
	Stage Stage     `json:"stage"`
	// Domain is the registrable domain the event concerns.
	Domain string `json:"domain,omitempty"`
	// URL should not contain credentials.
	URL         string        `json:"url,omitempty"`
	Bytes       int64         `json:"bytes,omitempty"`
	StatusClass StatusClass   `json:"status_class,omitempty"`
	Dur         time.Duration `json:"dur,omitempty"`
	// Score is the page score for fetch and itemize events.
	Score float64 `json:"score,omitempty"`
	// Items counts pages in a flushed batch.
	Items int `json:"items,omitempty"`
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	case StageFetchFailed, StageRejected, StageItemized:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	case StageBatchFlushed, StageBlacklisted:
		if e.Domain == "" {
			return fmt.Errorf("%s requires domain", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
