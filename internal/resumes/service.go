package resumes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/telemetry"
)

// Service reads and writes resume records in each owner's key-value namespace.
type Service struct {
	KV kv.Gateway
}

// Card is the list view of one record.
type Card struct {
	ID           string    `json:"id"`
	CompanyName  string    `json:"companyName,omitempty"`
	JobTitle     string    `json:"jobTitle,omitempty"`
	DocumentPath string    `json:"documentPath,omitempty"`
	ImagePath    string    `json:"imagePath,omitempty"`
	HasFeedback  bool      `json:"hasFeedback"`
	OverallScore *int      `json:"overallScore,omitempty"`
	Badge        string    `json:"badge,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
}

// Save writes rec under its current-shape key.
func (s *Service) Save(ctx context.Context, owner string, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return NewError(ErrPersist, "Error: Failed to save resume", errors.New("record id is required"))
	}
	raw, err := Encode(rec)
	if err != nil {
		return NewError(ErrPersist, "Error: Failed to save resume", err)
	}
	if err := s.KV.Namespace(owner).Set(ctx, Key(rec.ID), string(raw)); err != nil {
		return NewError(ErrPersist, "Error: Failed to save resume", err)
	}
	return nil
}

// Fetch loads the record for id, falling back to the legacy key. Missing or
// malformed records return ErrNotFound.
func (s *Service) Fetch(ctx context.Context, owner, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, NewError(ErrNotFound, "Resume not found", errors.New("empty id"))
	}
	store := s.KV.Namespace(owner)

	var raw string
	var err error
	for _, key := range []string{Key(id), LegacyKey(id)} {
		raw, err = store.Get(ctx, key)
		if err == nil {
			break
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return Record{}, fmt.Errorf("read resume %s: %w", id, err)
		}
	}
	if err != nil {
		return Record{}, NewError(ErrNotFound, "Resume not found", err)
	}

	rec, err := Decode([]byte(raw))
	if err != nil {
		telemetry.Warn("resumes.record_malformed", map[string]any{"resume_id": id, "error": err})
		return Record{}, NewError(ErrNotFound, "Resume not found", err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// List returns cards for every record in the namespace, newest first. Records
// that fail to decode are skipped.
func (s *Service) List(ctx context.Context, owner string) ([]Card, error) {
	store := s.KV.Namespace(owner)
	seen := make(map[string]struct{})
	var cards []Card

	for _, pattern := range []string{ListPattern, LegacyListPattern} {
		entries, err := store.List(ctx, pattern, true)
		if err != nil {
			return nil, fmt.Errorf("list resumes: %w", err)
		}
		for _, entry := range entries {
			id, ok := IDFromKey(entry.Key)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			rec, err := Decode([]byte(entry.Value))
			if err != nil {
				telemetry.Warn("resumes.list_skip", map[string]any{"key": entry.Key, "error": err})
				continue
			}
			if rec.ID == "" {
				rec.ID = id
			}
			seen[id] = struct{}{}
			cards = append(cards, cardFor(rec))
		}
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

func cardFor(rec Record) Card {
	card := Card{
		ID:           rec.ID,
		CompanyName:  rec.CompanyName,
		JobTitle:     rec.JobTitle,
		DocumentPath: rec.DocumentPath,
		ImagePath:    rec.ImagePath,
		HasFeedback:  rec.HasFeedback(),
		CreatedAt:    rec.CreatedAt,
	}
	if rec.Feedback != nil {
		score := rec.Feedback.OverallScore
		card.OverallScore = &score
		card.Badge = Badge(score)
	}
	return card
}
