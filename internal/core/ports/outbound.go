package ports

import (
	"context"
	"io"

	"github.com/citetrace/citetrace/internal/core/domain"
)

// FieldSpec describes one field a reviewer must extract. Schema, when set, is
// a JSON Schema fragment the raw reviewer answer is checked against.
type FieldSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema,omitempty"`
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetProcessed(ctx context.Context, id string, pageCount, chunkCount int) error
}

// ChunkRepository persists the indexed chunk set of a document. ReplaceAll
// swaps the whole set in one transaction; chunks are immutable afterward.
type ChunkRepository interface {
	ReplaceAll(ctx context.Context, documentID string, chunks []domain.TextChunk) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.TextChunk, error)
}

// ExtractionRepository persists extracted fields and their citations.
type ExtractionRepository interface {
	Upsert(ctx context.Context, ext *domain.Extraction) error
	GetByID(ctx context.Context, id string) (*domain.Extraction, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Extraction, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Extraction, error)
	SaveValidation(ctx context.Context, id string, citation domain.SourceCitation, score float64, status domain.ValidationStatus) error
}

// ConsensusRepository persists one row per (extraction_id, field_name),
// replaced on re-run.
type ConsensusRepository interface {
	SaveRecord(ctx context.Context, extractionID, documentID string, record domain.ConsensusRecord) error
	ListConflicts(ctx context.Context, documentID string) ([]domain.ConflictRecord, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PageSource yields positioned text fragments per page of a stored document.
type PageSource interface {
	Pages(ctx context.Context, doc *domain.Document) ([]Page, error)
}

// Page is one rendered page: its fragments in reading order plus the page
// height used to flip geometry to top-down coordinates.
type Page struct {
	PageNum   int
	Height    float64
	Fragments []domain.TextFragment
}

// ChunkIndexer converts one page of fragments into sentence chunks.
// nextIndex and charOffset carry sequencing state across pages; pages of one
// document must be indexed in page order.
type ChunkIndexer interface {
	IndexPage(page Page, nextIndex, charOffset int) []domain.TextChunk
}

// FieldExtractor is the consumed extraction capability: given one reviewer
// identity, the field specs and the citable document text, return structured
// data with a confidence score.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, reviewer domain.ReviewerConfig, fields []FieldSpec, citableText string) (domain.ReviewResult, error)
}

// SemanticMatcher is the consumed semantic-match capability. Implementations
// must degrade to a conservative no-match on unparsable output rather than
// propagate a parse error.
type SemanticMatcher interface {
	Match(ctx context.Context, extractedText, sourceText, fieldContext string) (domain.SemanticMatch, error)
}
