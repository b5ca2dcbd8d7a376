// pkg/hours/status.go
package hours

// ScrapeStatus is one phase of a facility's scrape cycle, recorded in the
// append-only log.
type ScrapeStatus string

const (
	StatusStarted ScrapeStatus = "started"
	StatusSuccess ScrapeStatus = "success"
	StatusError   ScrapeStatus = "error"
)
