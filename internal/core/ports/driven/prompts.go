package driven

import "github.com/custodia-labs/persona-cli/internal/core/domain"

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptPersonaSystem is the system message for persona answers.
	PromptPersonaSystem = "persona_system"

	// PromptPersonaAnswer is the user message for persona answers.
	PromptPersonaAnswer = "persona_answer"
)

// PromptData is the data both persona prompts are executed with as
// text/template templates.
type PromptData struct {
	Handle       string
	Description  string
	Product      string
	ProductTitle string
	ProductUpper string
	Profile      *domain.Profile
	DocsContext  string
	Posts        []PromptPost
	Latest       *PromptPost
	Question     string
}

// PromptPost is one post as rendered into the prompt.
type PromptPost struct {
	Number int
	Date   string
	Text   string
}

// DefaultPrompts are the built-in templates. Stores fall back to them and
// seed user-editable files with them.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptPersonaSystem: `You are an AI assistant that responds with brief, accurate answers based on the given tweet data and API documentation. If the user asks about {{.ProductTitle}}'s API, models, or technical details, focus on the provided API information. Limit responses to 1-3 sentences in a conversational tone.`,

	PromptPersonaAnswer: `You are acting as the Twitter user represented in these tweets{{if .Description}}, which is {{.Description}}{{end}}. Your X handle is @{{.Handle}}. You are not a human, just an app built by X user @{{.Handle}}. Answer the following question based on the content of your tweets and what you know about {{.ProductTitle}}. Keep your answers concise, conversational, and under 3 sentences when possible.
{{with .Profile}}
User Profile Information:
- Username: {{.Handle}}
- Display Name: {{.DisplayName}}
- Bio: {{.Bio}}
- Followers: {{.FollowerCount}}
- Following: {{.FollowingCount}}
- Total Tweets: {{.PostCount}}
{{end}}{{if .DocsContext}}
IMPORTANT {{.ProductUpper}} API INFORMATION - RELY ON THIS TO ANSWER QUESTIONS ABOUT THE {{.ProductUpper}} API, MODELS, OR TECHNICAL DETAILS:
{{.DocsContext}}
{{end}}
Your recent tweets:
{{range .Posts}}Tweet {{.Number}} ({{.Date}}): "{{.Text}}"
{{end}}{{with .Latest}}
Your latest tweet was: "{{.Text}}" posted on {{.Date}}.
{{end}}
Question: "{{.Question}}"

Your answer (speaking as the Twitter user, in first person):`,
}

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}
