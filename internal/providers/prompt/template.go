package prompt

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"styleframe/internal/domain"
)

// Fixed vocabularies for templated prompts. The templated path is pure local
// computation and cannot fail.
var (
	templateStyles = []string{
		"watercolor",
		"ukiyo-e woodblock",
		"cyberpunk neon",
		"claymation",
		"art deco poster",
		"vaporwave",
		"charcoal sketch",
		"stained glass",
		"low-poly",
		"impressionist oil",
	}

	templateEnvironments = []string{
		"neon-lit alley",
		"misty forest",
		"retro arcade",
		"underwater reef",
		"desert at dusk",
		"floating sky island",
		"rain-soaked rooftop",
		"crystal cavern",
	}

	templateEffects = []string{
		"glowing edges",
		"soft film grain",
		"chromatic shimmer",
		"long-exposure light trails",
		"paper-cut layering",
		"holographic glints",
	}

	sentenceTemplates = []string{
		"%s scene in a %s with %s",
		"a %s rendering of a %s, %s",
		"%s style, set in a %s, accented by %s",
		"portrait with %s treatment inside a %s, finished with %s",
	}
)

// TemplateSource synthesizes prompts from fixed vocabularies. The random
// source is injected so tests can pin the draw; a style hint is accepted for
// interface symmetry but ignored, templated prompts only ever use the fixed
// vocabularies.
type TemplateSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	titler cases.Caser
}

// NewTemplateSource builds a template source drawing from rng. A nil rng
// gets a time-seeded source.
func NewTemplateSource(rng *rand.Rand) *TemplateSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &TemplateSource{rng: rng, titler: cases.Title(language.English)}
}

func (t *TemplateSource) GeneratePrompt(ctx context.Context, styleHint string) (*domain.Prompt, error) {
	t.mu.Lock()
	style := templateStyles[t.rng.Intn(len(templateStyles))]
	environment := templateEnvironments[t.rng.Intn(len(templateEnvironments))]
	effect := templateEffects[t.rng.Intn(len(templateEffects))]
	template := sentenceTemplates[t.rng.Intn(len(sentenceTemplates))]
	t.mu.Unlock()

	styleWord := style
	if template[0] == '%' {
		styleWord = t.titler.String(style)
	}
	return &domain.Prompt{
		Text:   fmt.Sprintf(template, styleWord, environment, effect),
		Method: domain.PromptMethodTemplated,
		Fragments: &domain.PromptFragments{
			Style:       style,
			Environment: environment,
			Effect:      effect,
		},
	}, nil
}

var _ Source = (*TemplateSource)(nil)
