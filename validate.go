package main

import (
	"context"
	"unicode"
	"unicode/utf8"
)

// Wikidata property and entity identifiers used by the chain.
const (
	propertyGender       = "P21"
	propertyOccupation   = "P106"
	propertyFeminineForm = "P2521"

	entityFemale           = "Q6581072"
	entityTransgenderWoman = "Q1052281"

	// categoryUnknown is the placeholder shown when a person has no
	// occupation claims. Not a rejection.
	categoryUnknown = "Inconnu"
)

// Reason enumerates why a guess was rejected.
type Reason int

const (
	ReasonNotFound Reason = iota + 1
	ReasonNeedsPrecision
	ReasonMisspelled
	ReasonAlreadyFound
	ReasonNoStructuredData
	ReasonNotAWoman
	ReasonLookupFailed
)

// Message returns the user-facing text for a rejection. Rejections are
// intentionally coarse: neither the offending word nor the correct
// spelling is ever revealed.
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "Introuvable sur Wikipédia"
	case ReasonNeedsPrecision:
		return "Soyez plus précis !"
	case ReasonMisspelled:
		return "Orthographe incorrecte."
	case ReasonAlreadyFound:
		return "Déjà trouvé !"
	case ReasonNoStructuredData:
		return "Pas de données Wikidata"
	case ReasonNotAWoman:
		return "Ce n'est pas une femme (selon Wikidata)"
	default:
		return "Erreur de recherche."
	}
}

// Rejection is the terminal error for a failed validation attempt.
type Rejection struct {
	Reason Reason
}

func (r *Rejection) Error() string {
	return r.Reason.Message()
}

// Candidate is the top search result resolved from a guess.
type Candidate struct {
	Title  string
	PageID int
}

// OccupationLabels holds the two label forms resolvable for an
// occupation entity. FeminineForm takes precedence when present.
type OccupationLabels struct {
	FeminineForm string
	Label        string
}

// Lookup is the external knowledge-base capability consumed by the
// validation chain. wikiClient implements it against the live APIs;
// tests substitute stubs.
type Lookup interface {
	Search(ctx context.Context, query string) (*Candidate, error)
	EntityKey(ctx context.Context, pageID int) (string, error)
	Claims(ctx context.Context, entity, property string) ([]string, error)
	OccupationLabels(ctx context.Context, occupation string) (OccupationLabels, error)
	ArticleURL(title string) string
}

// Validator runs the guess validation chain. It is stateless apart from
// the ledger handed to each call.
type Validator struct {
	lookup Lookup
}

func newValidator(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// ValidateGuess resolves a raw guess to an accepted Entry or a
// *Rejection. The chain is strictly sequential; each remote call's
// input is derived from the previous call's output, and the first
// unmet precondition short-circuits the rest.
func (v *Validator) ValidateGuess(ctx context.Context, raw string, ledger *Ledger) (*Entry, error) {
	candidate, err := v.lookup.Search(ctx, raw)
	if err != nil {
		return nil, &Rejection{Reason: ReasonLookupFailed}
	}
	if candidate == nil {
		return nil, &Rejection{Reason: ReasonNotFound}
	}

	if err := matchTitle(tokenize(raw), candidate.Title); err != nil {
		return nil, err
	}

	// Duplicates are keyed on the canonical title, so a near-miss
	// spelling of an already-found person is flagged here rather than
	// costing further remote calls.
	if ledger.Contains(candidate.Title) {
		return nil, &Rejection{Reason: ReasonAlreadyFound}
	}

	entity, err := v.lookup.EntityKey(ctx, candidate.PageID)
	if err != nil {
		return nil, &Rejection{Reason: ReasonLookupFailed}
	}
	if entity == "" {
		return nil, &Rejection{Reason: ReasonNoStructuredData}
	}

	genders, err := v.lookup.Claims(ctx, entity, propertyGender)
	if err != nil {
		return nil, &Rejection{Reason: ReasonLookupFailed}
	}
	if !isWoman(genders) {
		return nil, &Rejection{Reason: ReasonNotAWoman}
	}

	category, err := v.resolveCategory(ctx, entity)
	if err != nil {
		return nil, &Rejection{Reason: ReasonLookupFailed}
	}

	return &Entry{
		Name:     candidate.Title,
		Category: category,
		Wiki:     v.lookup.ArticleURL(candidate.Title),
	}, nil
}

func isWoman(genders []string) bool {
	for _, g := range genders {
		if g == entityFemale || g == entityTransgenderWoman {
			return true
		}
	}
	return false
}

// resolveCategory maps the first occupation claim to a human-readable
// label, preferring the feminine form over the generic label. A person
// with no occupation claims still validates, with a placeholder.
func (v *Validator) resolveCategory(ctx context.Context, entity string) (string, error) {
	occupations, err := v.lookup.Claims(ctx, entity, propertyOccupation)
	if err != nil {
		return "", err
	}
	if len(occupations) == 0 {
		return categoryUnknown, nil
	}

	labels, err := v.lookup.OccupationLabels(ctx, occupations[0])
	if err != nil {
		return "", err
	}

	label := labels.FeminineForm
	if label == "" {
		label = labels.Label
	}
	if label == "" {
		return categoryUnknown, nil
	}

	return capitalize(label), nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
