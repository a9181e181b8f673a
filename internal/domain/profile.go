package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is an anonymous participant waiting to be paired. It is created on
// a match request and owned by the waiting queue until paired; after creation
// only the embedding is attached, nothing else is mutated.
type Profile struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Interests   []string  `json:"interests"`
	AgeRange    string    `json:"age_range,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewProfile(description string, interests []string, ageRange string) *Profile {
	return &Profile{
		ID:          uuid.New().String(),
		Description: description,
		Interests:   interests,
		AgeRange:    ageRange,
		CreatedAt:   time.Now().UTC(),
	}
}
