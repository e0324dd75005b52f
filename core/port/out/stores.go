package out

import (
	"context"
	"time"
)

// AccountStore answers whether a cloud account id is on the automation
// allow-list. Absent accounts must not be automated against.
type AccountStore interface {
	IsSupported(ctx context.Context, accountID string) (bool, error)
}

// SimilarityMatch is one past ticket whose body resembles the new one.
type SimilarityMatch struct {
	TicketID      string  `json:"ticketId"`
	TicketSubject string  `json:"ticketSubject"`
	Response      string  `json:"response"`
	Similarity    float64 `json:"similarity"`
}

// SimilarityResult is the outcome of a best-effort similarity lookup.
type SimilarityResult struct {
	Status     string            `json:"status"`
	Results    []SimilarityMatch `json:"results"`
	TotalFound int               `json:"total_found"`
	Elapsed    time.Duration     `json:"-"`
}

// SimilaritySearcher looks up past tickets with similar bodies. Failures are
// logged and ignored by the caller; this port must never gate the pipeline.
type SimilaritySearcher interface {
	Search(ctx context.Context, ticketBody string) (*SimilarityResult, error)
}

// ResponseRecord is an audit entry for one generated reply.
type ResponseRecord struct {
	TicketID      string    `bson:"ticketId" json:"ticketId"`
	TicketSubject string    `bson:"ticketSubject" json:"ticketSubject"`
	TicketBody    string    `bson:"ticketBody" json:"ticketBody"`
	Response      string    `bson:"response" json:"response"`
	Source        string    `bson:"source" json:"source"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// ResponseAuditStore persists generated replies for later similarity search
// and replay analysis.
type ResponseAuditStore interface {
	SaveResponse(ctx context.Context, rec *ResponseRecord) error
}
