package domain

// AnswerPath records which stage of the answer pipeline produced the text.
type AnswerPath string

// Answer paths.
const (
	// AnswerPathDirect is a deterministic answer computed from the posts.
	AnswerPathDirect AnswerPath = "direct"

	// AnswerPathGenerated is produced by the generation backend.
	AnswerPathGenerated AnswerPath = "generated"

	// AnswerPathFallback is the local keyword fallback used when generation fails.
	AnswerPathFallback AnswerPath = "fallback"
)

// Answer is the persona's reply to a question.
type Answer struct {
	// Text is the reply, spoken in the persona's first person.
	Text string `json:"text"`

	// GroundedInDocs is true when documentation text was included in the prompt.
	GroundedInDocs bool `json:"groundedInDocs"`

	// Path is the pipeline stage that produced Text.
	Path AnswerPath `json:"path"`

	// RequestID correlates log lines and traces for one answer.
	RequestID string `json:"requestId,omitempty"`
}
