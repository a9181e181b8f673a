package matching

import (
	"context"

	"github.com/kindredspace/kindred/internal/domain"
	"github.com/kindredspace/kindred/internal/vectorindex"
)

// ProfilesCollection stores waiting-profile embeddings for cross-request
// discovery.
const ProfilesCollection = "chat_users"

// IndexAdapter implements ProfileIndex on top of the vector index client.
type IndexAdapter struct {
	index *vectorindex.Client
}

func NewIndexAdapter(index *vectorindex.Client) *IndexAdapter {
	return &IndexAdapter{index: index}
}

func (a *IndexAdapter) StoreProfile(ctx context.Context, profile *domain.Profile) error {
	point := vectorindex.Point{
		ID:     profile.ID,
		Vector: profile.Embedding,
		Payload: map[string]any{
			"id":          profile.ID,
			"description": profile.Description,
			"interests":   profile.Interests,
			"age_range":   profile.AgeRange,
			"created_at":  profile.CreatedAt.Unix(),
		},
	}
	return a.index.Upsert(ctx, ProfilesCollection, []vectorindex.Point{point})
}

func (a *IndexAdapter) SimilarProfiles(ctx context.Context, profile *domain.Profile, limit int) ([]Candidate, error) {
	filter := &vectorindex.Filter{
		MustNot: []vectorindex.Clause{
			vectorindex.MatchClause("id", profile.ID),
		},
	}

	records, err := a.index.Query(ctx, ProfilesCollection, profile.Embedding, filter, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, Candidate{
			ProfileID: record.ID,
			Score:     record.Score,
		})
	}
	return candidates, nil
}
