package domain

// PromptMethod tags how a transformation prompt was produced.
type PromptMethod string

const (
	PromptMethodGenerated PromptMethod = "generated"
	PromptMethodTemplated PromptMethod = "templated"
	PromptMethodSupplied  PromptMethod = "supplied"
)

// PromptFragments records the vocabulary picks behind a templated prompt so
// the choice stays auditable. Generated prompts carry no fragments.
type PromptFragments struct {
	Style       string
	Environment string
	Effect      string
}

// Prompt is the short descriptive transformation text handed to the image
// providers. Created once per request and never mutated.
type Prompt struct {
	Text      string
	Method    PromptMethod
	Fragments *PromptFragments
}
