package service

import (
	"context"
	"errors"
	"testing"

	"counselbrief-backend/models"
)

// fakeCompletion returns a canned response or error for any prompt
type fakeCompletion struct {
	response string
	err      error
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const validAnswerJSON = `{
	"issue_framing": "Whether a wife may claim interim maintenance pending divorce.",
	"short_answer": "Yes, under Section 125 CrPC.",
	"long_answer": "A wife unable to maintain herself may claim maintenance.",
	"authorities": [
		{
			"court": "Supreme Court of India",
			"year": 2020,
			"title": "Rajnesh v. Neha",
			"pinpoint": "para 58",
			"holding": "Interim maintenance is payable from the date of application.",
			"relevance": "Directly governs interim maintenance quantum and timing.",
			"primary": true
		}
	],
	"applicability": [
		{"proposition": "Maintenance runs from the application date", "supports": true, "reason": "Binding Supreme Court direction"}
	],
	"missing_facts": ["Income of both spouses"],
	"next_steps": ["File an affidavit of assets and liabilities"],
	"confidence": 0.85
}`

func TestSynthesizeParsesStructuredAnswer(t *testing.T) {
	svc := NewAnswerService(&fakeCompletion{response: validAnswerJSON})

	answer, err := svc.Synthesize(context.Background(), SynthesizeRequest{
		UserQuery:   "Can my wife claim maintenance during divorce proceedings?",
		Norm:        models.NormalizedQuery{PartySeeking: "wife", Relief: "interim maintenance"},
		TargetForum: "CrPC_125",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(answer.Authorities) != 1 {
		t.Fatalf("expected 1 authority, got %d", len(answer.Authorities))
	}
	if answer.Authorities[0].Title != "Rajnesh v. Neha" {
		t.Errorf("authority not parsed: %+v", answer.Authorities[0])
	}
	// A primary authority is cited, so confidence stays untouched
	if answer.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", answer.Confidence)
	}
}

func TestSynthesizeFencedResponse(t *testing.T) {
	svc := NewAnswerService(&fakeCompletion{response: "```json\n" + validAnswerJSON + "\n```"})

	answer, err := svc.Synthesize(context.Background(), SynthesizeRequest{UserQuery: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.ShortAnswer == "" {
		t.Error("expected short answer parsed through code fences")
	}
}

func TestSynthesizeNonJSONResponse(t *testing.T) {
	raw := "I am sorry, I cannot answer that question."
	svc := NewAnswerService(&fakeCompletion{response: raw})

	_, err := svc.Synthesize(context.Background(), SynthesizeRequest{UserQuery: "q"})
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %T", err)
	}
	if synthErr.RawResponse != raw {
		t.Errorf("expected raw response preserved for diagnostics")
	}
}

func TestSynthesizeEmptyAuthorities(t *testing.T) {
	svc := NewAnswerService(&fakeCompletion{response: `{
		"issue_framing": "f", "short_answer": "s", "long_answer": "l",
		"authorities": [], "applicability": [], "missing_facts": [],
		"next_steps": [], "confidence": 0.9
	}`})

	_, err := svc.Synthesize(context.Background(), SynthesizeRequest{UserQuery: "q"})
	if err == nil {
		t.Fatal("expected error for answer citing no authorities")
	}

	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %T", err)
	}
}

func TestSynthesizeCompletionFailure(t *testing.T) {
	svc := NewAnswerService(&fakeCompletion{err: errors.New("upstream timeout")})

	if _, err := svc.Synthesize(context.Background(), SynthesizeRequest{UserQuery: "q"}); err == nil {
		t.Fatal("expected error when the completion call fails")
	}
}

func TestEnforceAnswerRulesCapsConfidenceWithoutPrimary(t *testing.T) {
	answer := &models.StructuredAnswer{
		Authorities: []models.Authority{
			{Title: "Commentary on Maintenance Law", Primary: false},
		},
		Confidence: 0.95,
	}

	EnforceAnswerRules(answer)

	if answer.Confidence != ConfidenceCeilingWithoutPrimary {
		t.Errorf("expected confidence capped at %v, got %v", ConfidenceCeilingWithoutPrimary, answer.Confidence)
	}

	found := false
	for _, step := range answer.NextSteps {
		if step == PrimarySourceNextStep {
			found = true
		}
	}
	if !found {
		t.Error("expected primary-source next step appended")
	}
}

func TestEnforceAnswerRulesLeavesLowConfidenceAlone(t *testing.T) {
	answer := &models.StructuredAnswer{
		Authorities: []models.Authority{{Title: "Commentary", Primary: false}},
		Confidence:  0.4,
	}

	EnforceAnswerRules(answer)

	if answer.Confidence != 0.4 {
		t.Errorf("confidence below the ceiling must not change, got %v", answer.Confidence)
	}
	if len(answer.NextSteps) != 1 || answer.NextSteps[0] != PrimarySourceNextStep {
		t.Errorf("expected only the primary-source next step, got %v", answer.NextSteps)
	}
}

func TestEnforceAnswerRulesNoEffectWithPrimary(t *testing.T) {
	answer := &models.StructuredAnswer{
		Authorities: []models.Authority{
			{Title: "Commentary", Primary: false},
			{Title: "Rajnesh v. Neha", Primary: true},
		},
		Confidence: 0.95,
		NextSteps:  []string{"File an affidavit"},
	}

	EnforceAnswerRules(answer)

	if answer.Confidence != 0.95 {
		t.Errorf("expected confidence untouched with a primary authority, got %v", answer.Confidence)
	}
	if len(answer.NextSteps) != 1 {
		t.Errorf("expected next steps untouched, got %v", answer.NextSteps)
	}
}

func TestEnforceAnswerRulesIdempotent(t *testing.T) {
	answer := &models.StructuredAnswer{
		Authorities: []models.Authority{{Title: "Commentary", Primary: false}},
		Confidence:  0.9,
	}

	EnforceAnswerRules(answer)
	EnforceAnswerRules(answer)

	count := 0
	for _, step := range answer.NextSteps {
		if step == PrimarySourceNextStep {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one primary-source next step, got %d", count)
	}
}
