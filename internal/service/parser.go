package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/types"
)

const parserCachePrefix = "constraints:"

var fencePattern = regexp.MustCompile("(?i)```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Message is one chat message sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the chat completion request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type constraintEnvelope struct {
	Constraints []types.DietConstraint `json:"constraints"`
}

// ParserConfig configures an LLMConstraintParser.
type ParserConfig struct {
	APIKey   string
	URL      string
	Model    string
	CacheTTL time.Duration
	// FoodNames are offered to the model as the only valid food_item values.
	FoodNames []string
}

// LLMConstraintParser asks an OpenAI compatible chat completion endpoint to
// turn free text into constraint records. Replies are cached in redis by
// request text when a client is given.
type LLMConstraintParser struct {
	cfg    ParserConfig
	client *http.Client
	redis  *redis.Client
	prompt string
	log    *logger.Logger
}

var _ ConstraintParser = (*LLMConstraintParser)(nil)

// NewLLMConstraintParser creates a parser. rdb may be nil to disable caching.
func NewLLMConstraintParser(cfg ParserConfig, rdb *redis.Client, log *logger.Logger) (*LLMConstraintParser, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("parser API key must be set")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("parser URL must be set")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LLMConstraintParser{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		redis:  rdb,
		prompt: systemPrompt(cfg.FoodNames),
		log:    log.WithComponent("parser"),
	}, nil
}

// Parse returns the constraint records the model extracted from text.
func (p *LLMConstraintParser) Parse(ctx context.Context, text string) ([]types.DietConstraint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	key := cacheKey(text)
	if cached, ok := p.cached(ctx, key); ok {
		return cached, nil
	}

	content, err := p.complete(ctx, text)
	if err != nil {
		return nil, err
	}

	out, err := decodeConstraints(content)
	if err != nil {
		return nil, err
	}

	p.store(ctx, key, out)
	return out, nil
}

func (p *LLMConstraintParser) complete(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(Request{
		Model: p.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: p.prompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrParserFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response: %v", ErrParserFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("parser request failed", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: API request failed with status %d: %s", ErrParserFailure, resp.StatusCode, string(raw))
	}

	var result completionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrParserFailure, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrParserFailure)
	}
	return result.Choices[0].Message.Content, nil
}

// decodeConstraints accepts either the {"constraints": [...]} envelope or
// a bare array, optionally wrapped in a markdown code fence.
func decodeConstraints(content string) ([]types.DietConstraint, error) {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	if strings.HasPrefix(content, "[") {
		var list []types.DietConstraint
		if err := json.Unmarshal([]byte(content), &list); err != nil {
			return nil, fmt.Errorf("%w: malformed constraint list: %v", ErrParserFailure, err)
		}
		return list, nil
	}

	var env constraintEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, fmt.Errorf("%w: malformed constraint envelope: %v", ErrParserFailure, err)
	}
	return env.Constraints, nil
}

func cacheKey(text string) string {
	return parserCachePrefix + uuid.NewSHA1(uuid.NameSpaceURL, []byte(text)).String()
}

func (p *LLMConstraintParser) cached(ctx context.Context, key string) ([]types.DietConstraint, bool) {
	if p.redis == nil {
		return nil, false
	}
	data, err := p.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.log.Warn("parser cache read failed", "error", err)
		}
		return nil, false
	}
	var out []types.DietConstraint
	if err := json.Unmarshal(data, &out); err != nil {
		p.log.Warn("parser cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return out, true
}

func (p *LLMConstraintParser) store(ctx context.Context, key string, out []types.DietConstraint) {
	if p.redis == nil || p.cfg.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, key, data, p.cfg.CacheTTL).Err(); err != nil {
		p.log.Warn("parser cache write failed", "error", err)
	}
}

func systemPrompt(foodNames []string) string {
	categories := make([]string, 0, len(types.Categories()))
	for _, c := range types.Categories() {
		categories = append(categories, string(c))
	}

	var b strings.Builder
	b.WriteString("You convert a diner's meal request into diet constraints.\n")
	b.WriteString(`Reply with JSON only, in the form {"constraints": [...]}. Each constraint has:` + "\n")
	b.WriteString(`- "intent": one of INCLUDE_ITEM, EXCLUDE_ITEM, NUTRIENT, PREFERENCE` + "\n")
	b.WriteString(`- "strength": "hard" for must or never, otherwise "soft"` + "\n")
	b.WriteString(`- "food_item": for INCLUDE_ITEM and EXCLUDE_ITEM, copied exactly from the food list` + "\n")
	b.WriteString(`- "nutrient", "bound_type", "bound_value": for NUTRIENT. nutrient is one of calorie, protein, fat, carbon, sodium, sugar, fiber; bound_type is lower (at most), greater (at least) or equal` + "\n")
	b.WriteString(`- "preference_type": for PREFERENCE, spice_level or food_group` + "\n")
	b.WriteString(`- "spice_level": low, medium or high` + "\n")
	fmt.Fprintf(&b, "- \"food_group\": one of %s\n", strings.Join(categories, ", "))
	b.WriteString("Return an empty list when the request has no dietary content.\n")
	if len(foodNames) > 0 {
		fmt.Fprintf(&b, "Food list: %s\n", strings.Join(foodNames, ", "))
	}
	return b.String()
}
