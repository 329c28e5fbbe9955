package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"counselbrief-backend/models"
)

// ForumMismatchError is a guardrail rejection: the requested relief is not
// available to the requesting party under the target procedural forum. It
// carries the corrective suggestion so the caller can redirect the user
// instead of answering under the wrong legal framework.
type ForumMismatchError struct {
	Party          string `json:"party"`
	Relief         string `json:"relief"`
	Forum          string `json:"forum"`
	SuggestedForum string `json:"suggested_forum"`
	Reason         string `json:"reason"`
}

// Error implements the error interface
func (e *ForumMismatchError) Error() string {
	return fmt.Sprintf("forum mismatch: %s cannot seek %s under %s; %s (consider %s)",
		e.Party, e.Relief, e.Forum, e.Reason, e.SuggestedForum)
}

// forumRule is one known-inapplicable party/relief/forum combination
type forumRule struct {
	party          string
	relief         string
	forum          string
	suggestedForum string
	reason         string
}

// Section 125 CrPC maintenance is available to wives, children and parents
// against the husband/father, never to the husband himself. A husband seeking
// maintenance or alimony must proceed under the Hindu Marriage Act instead.
var forumRules = []forumRule{
	{
		party:          "husband",
		relief:         "interim maintenance",
		forum:          "CrPC_125",
		suggestedForum: "HMA_24",
		reason:         "Section 125 CrPC does not entitle a husband to claim maintenance; interim maintenance for either spouse is available under Section 24 of the Hindu Marriage Act",
	},
	{
		party:          "husband",
		relief:         "permanent alimony",
		forum:          "CrPC_125",
		suggestedForum: "HMA_25",
		reason:         "Section 125 CrPC does not entitle a husband to claim maintenance; permanent alimony for either spouse is available under Section 25 of the Hindu Marriage Act",
	},
}

// CheckForum runs the deterministic guardrail over a normalized query before
// any retrieval or synthesis call is made. targetForum overrides the forum in
// the normalized query when set. Returns nil when the combination is
// legally tenable.
func CheckForum(norm models.NormalizedQuery, targetForum string) *ForumMismatchError {
	forum := targetForum
	if forum == "" {
		forum = norm.Forum
	}

	party := strings.ToLower(strings.TrimSpace(norm.PartySeeking))
	relief := strings.ToLower(strings.TrimSpace(norm.Relief))
	forum = strings.TrimSpace(forum)

	for _, rule := range forumRules {
		if party == rule.party && relief == rule.relief && strings.EqualFold(forum, rule.forum) {
			return &ForumMismatchError{
				Party:          norm.PartySeeking,
				Relief:         norm.Relief,
				Forum:          forum,
				SuggestedForum: rule.suggestedForum,
				Reason:         rule.reason,
			}
		}
	}

	return nil
}

// QueryService normalizes raw user questions into structured issues
type QueryService struct {
	completions CompletionClient
}

// NewQueryService creates a new query service
func NewQueryService(completions CompletionClient) *QueryService {
	return &QueryService{completions: completions}
}

// Normalize classifies a raw user question into a structured issue: the
// parties, the relief sought, the target forum and any implicated provisions.
func (s *QueryService) Normalize(ctx context.Context, rawQuery string) (*models.NormalizedQuery, error) {
	if s.completions == nil {
		return nil, errors.New("completion client not set")
	}
	if strings.TrimSpace(rawQuery) == "" {
		return nil, errors.New("query is empty")
	}

	prompt := fmt.Sprintf(`You are an Indian family-law intake assistant.

Classify the user's question into a structured issue.

USER QUESTION:
%s

Return ONLY a JSON object with this exact shape, no markdown, no explanations:
{
  "partySeeking": "who is asking for relief (e.g. wife, husband, child, parent)",
  "partyResponding": "who relief is sought against, or empty string",
  "relief": "the relief sought (e.g. interim maintenance, permanent alimony, custody)",
  "forum": "the procedural forum the question targets (e.g. CrPC_125, HMA_24, HMA_25)",
  "provisions": ["implicated statutory provisions"]
}

Use lowercase for partySeeking, partyResponding and relief. Use the canonical
forum identifiers CrPC_125, HMA_24, HMA_25 where they apply.`, rawQuery)

	response, err := s.completions.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize query: %w", err)
	}

	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse normalization response: %w", err)
	}

	var norm models.NormalizedQuery
	if err := json.Unmarshal([]byte(jsonStr), &norm); err != nil {
		return nil, fmt.Errorf("failed to parse normalization response: %w", err)
	}

	if norm.PartySeeking == "" || norm.Relief == "" {
		return nil, fmt.Errorf("normalization missing required fields: %+v", norm)
	}

	return &norm, nil
}
