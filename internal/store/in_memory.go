package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/CornerstoneRE/LeadLine/internal/models"
)

// InMemoryStore is a mutex-guarded map-backed Store used by tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	leads map[string]models.Lead
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{leads: make(map[string]models.Lead)}
}

func (s *InMemoryStore) GetLeadByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[phone]
	if !ok {
		return nil, nil
	}
	copied := lead
	return &copied, nil
}

func (s *InMemoryStore) CreateLead(ctx context.Context, lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.Phone]; ok {
		return fmt.Errorf("%w: %s", ErrLeadExists, lead.Phone)
	}
	if lead.FollowUpStage == "" {
		lead.FollowUpStage = models.FollowUpStageScheduled
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	s.leads[lead.Phone] = lead
	return nil
}

func (s *InMemoryStore) UpdateLead(ctx context.Context, phone string, fields map[string]string) error {
	if err := validateUpdateFields(fields); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	for name, value := range fields {
		lead.SetField(name, value)
	}
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) AppendHistory(ctx context.Context, phone string, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	if lead.ChatHistory == "" {
		lead.ChatHistory = line
	} else {
		lead.ChatHistory += "\n" + line
	}
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) MarkContacted(ctx context.Context, phone string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	t := at.UTC()
	lead.LastContacted = &t
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) ScheduleFollowUp(ctx context.Context, phone string, at time.Time, stage models.FollowUpStage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	t := at.UTC()
	lead.NextFollowUpTime = &t
	lead.FollowUpStage = stage
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) PauseFollowUpsUntil(ctx context.Context, phone string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	t := until.UTC()
	lead.FollowUpPausedUntil = &t
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) SetTourReady(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	lead.TourReady = true
	lead.NextFollowUpTime = nil
	lead.UpdatedAt = time.Now().UTC()
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) IncrementFollowUp(ctx context.Context, phone string, stage models.FollowUpStage, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[phone]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLeadNotFound, phone)
	}
	lead.FollowUpCount++
	lead.FollowUpStage = stage
	if next != nil {
		t := next.UTC()
		lead.NextFollowUpTime = &t
	} else {
		lead.NextFollowUpTime = nil
	}
	now := time.Now().UTC()
	lead.LastContacted = &now
	lead.UpdatedAt = now
	s.leads[phone] = lead
	return nil
}

func (s *InMemoryStore) ListLeadsDueForFollowUp(ctx context.Context, now time.Time, limit int) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []models.Lead
	for _, lead := range s.leads {
		if lead.TourReady || lead.NextFollowUpTime == nil || lead.NextFollowUpTime.After(now) {
			continue
		}
		if lead.FollowUpPausedUntil != nil && lead.FollowUpPausedUntil.After(now) {
			continue
		}
		due = append(due, lead)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextFollowUpTime.Before(*due[j].NextFollowUpTime)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
