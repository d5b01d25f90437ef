// Package answer turns a free-text question into an answer with sources.
package answer

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"saral/internal/task"
	"saral/pkg/domain"
)

// Answer is the responder output.
type Answer = domain.Answer

// MaxQueryLength is the longest accepted question, in characters.
const MaxQueryLength = 500

// DefaultDelay is how long the keyword responder waits before answering.
const DefaultDelay = 1500 * time.Millisecond

var (
	ErrEmptyQuery    = errors.New("query is required")
	ErrQueryTooLong  = errors.New("query must be at most 500 characters")
	ErrResponderBusy = errors.New("a question is already being answered")
)

// Responder answers a question.
type Responder interface {
	Answer(ctx context.Context, query string) (Answer, error)
}

// ExampleQueries are offered as one-click suggestions on an empty transcript.
var ExampleQueries = []string{
	"What are the eligibility criteria for UGC scholarships?",
	"Explain the AICTE approval process",
	"What are the key points of NEP 2020?",
	"How to apply for NAAC accreditation?",
}

// ValidateQuery rejects blank and overlong questions.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}

type keywordGroup struct {
	terms  []string
	answer Answer
}

// Groups are checked in order; the first group with a term contained in the
// lower-cased query wins.
var keywordGroups = []keywordGroup{
	{terms: []string{"एआईसीटीई", "अनुमोदन"}, answer: aicteApprovalHindi},
	{terms: []string{"ugc", "scholarship"}, answer: ugcScholarship},
	{terms: []string{"aicte", "approval"}, answer: aicteApproval},
	{terms: []string{"nep", "2020", "education policy"}, answer: nep2020},
	{terms: []string{"naac", "accreditation"}, answer: naacAccreditation},
}

// Match returns the canned answer for query, or the fallback.
func Match(query string) Answer {
	lower := strings.ToLower(query)
	for _, group := range keywordGroups {
		for _, term := range group.terms {
			if strings.Contains(lower, term) {
				return clone(group.answer)
			}
		}
	}
	return Fallback(query)
}

// Fallback lists the topics the responder knows about.
func Fallback(query string) Answer {
	return Answer{
		Response: `Thank you for your query about "` + query + `". ` + fallbackBody,
		Sources: []string{
			"https://www.education.gov.in/",
			"https://www.ugc.ac.in/",
			"https://www.aicte-india.org/",
			"http://www.naac.gov.in/",
		},
	}
}

const fallbackBody = `

I can provide detailed information about:
• UGC Scholarships and eligibility criteria
• AICTE approval process for institutions
• National Education Policy (NEP) 2020 highlights
• NAAC accreditation process and criteria

Please ask a specific question about any of these topics, and I'll provide comprehensive information with relevant sources.`

// KeywordResponder answers from the canned catalog after a fixed delay.
type KeywordResponder struct {
	delay time.Duration
}

// NewKeywordResponder returns a responder that waits delay before answering.
// A negative delay means DefaultDelay.
func NewKeywordResponder(delay time.Duration) *KeywordResponder {
	if delay < 0 {
		delay = DefaultDelay
	}
	return &KeywordResponder{delay: delay}
}

// Answer waits out the delay, then matches query. It returns the context
// error if ctx ends first.
func (r *KeywordResponder) Answer(ctx context.Context, query string) (Answer, error) {
	if err := ValidateQuery(query); err != nil {
		return Answer{}, err
	}
	t := task.After(ctx, r.delay, func(context.Context) (Answer, error) {
		return Match(query), nil
	})
	defer t.Cancel()
	return t.Wait(ctx)
}

func clone(a Answer) Answer {
	a.Sources = append([]string(nil), a.Sources...)
	return a
}
