package driven

import "context"

// DocsSource fetches the raw documentation corpus used for grounding.
type DocsSource interface {
	// Fetch returns the full corpus text.
	Fetch(ctx context.Context) (string, error)

	// Location describes where the corpus is fetched from (URL or path).
	Location() string
}
