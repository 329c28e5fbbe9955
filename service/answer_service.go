package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"counselbrief-backend/models"
)

const (
	// ConfidenceCeilingWithoutPrimary caps answer confidence when no cited
	// authority is a primary source.
	ConfidenceCeilingWithoutPrimary = 0.6

	// PrimarySourceNextStep is appended to next_steps whenever the answer
	// rests on secondary authority only.
	PrimarySourceNextStep = "Locate and review primary court judgments on the implicated provisions before relying on this answer"
)

// SynthesisError is a structured synthesis failure that preserves the raw
// model output for diagnostics instead of discarding it.
type SynthesisError struct {
	Reason      string
	RawResponse string
}

// Error implements the error interface
func (e *SynthesisError) Error() string {
	return e.Reason
}

// AnswerService produces schema-conformant structured answers from re-ranked
// context.
type AnswerService struct {
	completions CompletionClient
}

// NewAnswerService creates a new answer service
func NewAnswerService(completions CompletionClient) *AnswerService {
	return &AnswerService{completions: completions}
}

// SynthesizeRequest represents an answer synthesis request
type SynthesizeRequest struct {
	UserQuery   string
	Norm        models.NormalizedQuery
	TargetForum string
	Context     []models.Candidate
}

// Synthesize calls the completion service constrained to the structured
// answer schema and enforces the business-rule post-conditions outside the
// model call: the JSON must parse, the authorities list must be non-empty,
// and confidence is capped when no authority is primary.
func (s *AnswerService) Synthesize(ctx context.Context, req SynthesizeRequest) (*models.StructuredAnswer, error) {
	if s.completions == nil {
		return nil, errors.New("completion client not set")
	}

	prompt := s.buildPrompt(req)

	response, err := s.completions.Complete(ctx, prompt, 0.2)
	if err != nil {
		return nil, fmt.Errorf("synthesis call failed: %w", err)
	}

	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, &SynthesisError{
			Reason:      "synthesis response is not valid JSON",
			RawResponse: response,
		}
	}

	var answer models.StructuredAnswer
	if err := json.Unmarshal([]byte(jsonStr), &answer); err != nil {
		return nil, &SynthesisError{
			Reason:      "synthesis response does not match the answer schema",
			RawResponse: response,
		}
	}

	if len(answer.Authorities) == 0 {
		return nil, &SynthesisError{
			Reason:      "no authorities found",
			RawResponse: response,
		}
	}

	EnforceAnswerRules(&answer)

	return &answer, nil
}

// EnforceAnswerRules applies the post-conditions that are never delegated to
// the model: when no authority is flagged primary, confidence is capped at
// the fixed ceiling and the primary-source next step is appended.
func EnforceAnswerRules(answer *models.StructuredAnswer) {
	hasPrimary := false
	for _, auth := range answer.Authorities {
		if auth.Primary {
			hasPrimary = true
			break
		}
	}

	if hasPrimary {
		return
	}

	if answer.Confidence > ConfidenceCeilingWithoutPrimary {
		answer.Confidence = ConfidenceCeilingWithoutPrimary
	}

	for _, step := range answer.NextSteps {
		if step == PrimarySourceNextStep {
			return
		}
	}
	answer.NextSteps = append(answer.NextSteps, PrimarySourceNextStep)
}

// buildPrompt assembles the synthesis prompt from the normalized issue and
// the re-ranked context.
func (s *AnswerService) buildPrompt(req SynthesizeRequest) string {
	var contextText strings.Builder
	for _, cand := range req.Context {
		direction := "unknown"
		if cand.HoldingDirection != nil {
			direction = *cand.HoldingDirection
		}
		contextText.WriteString(fmt.Sprintf(
			"[COURT: %s | POSTURE: %s | HOLDING: %s | PROVISIONS: %s | PRIMARY: %v]\n%s\n\n",
			cand.CourtLevel, cand.Posture, direction,
			strings.Join(cand.Provisions, ", "), cand.Primary, cand.Text,
		))
	}

	return fmt.Sprintf(`You are an Indian family-law research attorney. Answer the user's question
strictly from the legal context below.

USER QUESTION:
%s

STRUCTURED ISSUE:
- Party seeking relief: %s
- Party responding: %s
- Relief sought: %s
- Target forum: %s
- Implicated provisions: %s

LEGAL CONTEXT:
%s
Return ONLY a JSON object with this exact shape, no markdown, no explanations:
{
  "issue_framing": "one-paragraph framing of the legal issue",
  "short_answer": "2-3 sentence direct answer",
  "long_answer": "full reasoned analysis citing the context",
  "authorities": [
    {
      "court": "court name",
      "year": 2020,
      "title": "case or statute title",
      "pinpoint": "paragraph or section cite",
      "holding": "what it held",
      "relevance": "why it matters here",
      "primary": true
    }
  ],
  "applicability": [
    {"proposition": "legal proposition", "supports": true, "reason": "why it does or does not support the user"}
  ],
  "missing_facts": ["facts needed to firm up the answer"],
  "next_steps": ["recommended actions"],
  "confidence": 0.0
}

REQUIREMENTS:
- Cite only authorities that appear in the legal context above
- Mark primary true only for court judgments and statutory text
- Confidence is 0.0-1.0 and must reflect the strength of the cited authority
- Use formal legal language; no hyperbole`,
		req.UserQuery,
		req.Norm.PartySeeking,
		req.Norm.PartyResponding,
		req.Norm.Relief,
		req.TargetForum,
		strings.Join(req.Norm.Provisions, ", "),
		contextText.String(),
	)
}
