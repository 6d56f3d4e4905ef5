package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gomarketplace/cartstore/internal/domain"
)

// PersistMode selects how a failed write affects the in-memory list.
type PersistMode int

const (
	// PersistStrict writes first and applies the change in memory only when
	// the write succeeded. A failed write is returned as a persistence error.
	PersistStrict PersistMode = iota
	// PersistBestEffort applies the change in memory regardless of the write
	// outcome. Write failures are logged and not returned, so memory and
	// storage may diverge until the next successful write.
	PersistBestEffort
)

func (m PersistMode) String() string {
	switch m {
	case PersistStrict:
		return "strict"
	case PersistBestEffort:
		return "best_effort"
	default:
		return fmt.Sprintf("PersistMode(%d)", int(m))
	}
}

// ParsePersistMode parses "strict" or "best_effort".
func ParsePersistMode(s string) (PersistMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PersistStrict, nil
	case "best_effort", "best-effort", "besteffort":
		return PersistBestEffort, nil
	default:
		return 0, fmt.Errorf("unknown persist mode %q", s)
	}
}

// MatchMode selects how AddToCart finds an existing line for a candidate.
type MatchMode int

const (
	// MatchByID treats a candidate as present when a line has the same id.
	MatchByID MatchMode = iota
	// MatchByValue treats a candidate as present only when a line is equal in
	// every field, quantity included. A line whose quantity was changed no
	// longer matches, so adding the same product again appends a second line
	// with a duplicate id. This is a literal whole-value comparison; it does
	// not reproduce the mobile client, which compared object identity and so
	// kept matching a product after its quantity changed.
	MatchByValue
)

func (m MatchMode) String() string {
	switch m {
	case MatchByID:
		return "id"
	case MatchByValue:
		return "value"
	default:
		return fmt.Sprintf("MatchMode(%d)", int(m))
	}
}

// ParseMatchMode parses "id" or "value".
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "id":
		return MatchByID, nil
	case "value":
		return MatchByValue, nil
	default:
		return 0, fmt.Errorf("unknown match mode %q", s)
	}
}

// Publisher is notified after every applied change.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, version uint64, items domain.Items) error
}

// Recorder receives operation metrics.
type Recorder interface {
	ObserveOperation(operation, result string)
	ObservePersist(d time.Duration)
	SetContents(lines, units int)
}

// Option configures a Store.
type Option func(*Store)

// WithPersistMode sets the persistence ordering. Default PersistStrict.
func WithPersistMode(m PersistMode) Option {
	return func(s *Store) { s.persistMode = m }
}

// WithMatchMode sets the AddToCart matching policy. Default MatchByID.
func WithMatchMode(m MatchMode) Option {
	return func(s *Store) { s.matchMode = m }
}

// WithPublisher sets the change publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishCartUpdated(context.Context, uint64, domain.Items) error { return nil }

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, string) {}
func (noopRecorder) ObservePersist(time.Duration) {}
func (noopRecorder) SetContents(int, int) {}
