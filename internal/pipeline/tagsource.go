package pipeline

import (
	"context"

	"github.com/zhongyd/addrnorm/internal/bioes"
	"github.com/zhongyd/addrnorm/internal/llmtag"
	"github.com/zhongyd/addrnorm/internal/tagger"
)

// TagSource produces a category map for an address whose record did not
// arrive with one. Both backends are remote and may fail transiently.
type TagSource interface {
	Entities(ctx context.Context, address string) (map[string]string, error)
}

// ModelTagSource tags through the sequence-tagging model service and
// decodes its BIOES output.
type ModelTagSource struct {
	Client *tagger.Client
}

func (s *ModelTagSource) Entities(ctx context.Context, address string) (map[string]string, error) {
	tagged, err := s.Client.Tag(ctx, address)
	if err != nil {
		return nil, err
	}
	return bioes.Decode(tagged.Tokens, tagged.Tags).Flat(), nil
}

// LLMTagSource tags through the LLM classifier.
type LLMTagSource struct {
	Client *llmtag.Client
}

func (s *LLMTagSource) Entities(ctx context.Context, address string) (map[string]string, error) {
	return s.Client.TagAddress(ctx, address)
}
