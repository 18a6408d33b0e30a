package scanner

import (
	"time"

	"github.com/raysh454/vulnprobe/internal/model"
)

type EventType string

const (
	EventScanStarted  EventType = "scan_started"
	EventPageVisited  EventType = "page_visited"
	EventCrawlDone    EventType = "crawl_done"
	EventPageStarted  EventType = "page_started"
	EventPageDone     EventType = "page_done"
	EventPageFailed   EventType = "page_failed"
	EventProbeSent    EventType = "probe_sent"
	EventProbeFailed  EventType = "probe_failed"
	EventFinding      EventType = "finding"
	EventScanFinished EventType = "scan_finished"
)

// Event reports scan progress. Count carries the crawl depth for
// page_visited, the page total for crawl_done and the finding count for
// page_done and scan_finished.
type Event struct {
	Type    EventType      `json:"type"`
	URL     string         `json:"url,omitempty"`
	Count   int            `json:"count,omitempty"`
	Finding *model.Finding `json:"finding,omitempty"`
	Error   string         `json:"error,omitempty"`
	Time    time.Time      `json:"time"`
}

// EventFunc receives events. It is called from worker goroutines and must be
// safe for concurrent use.
type EventFunc func(Event)
