package mock

import (
	"sync"

	"github.com/google/uuid"
)

// Idea is a stored idea as the list endpoint returns it
type Idea struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Store keeps ideas in insertion order. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	ideas []*Idea
}

func NewStore() *Store {
	return &Store{}
}

// Create stores a new idea under a fresh UUID
func (s *Store) Create(title, description, url string) *Idea {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea := &Idea{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		URL:         url,
	}
	s.ideas = append(s.ideas, idea)
	return idea
}

// All returns a snapshot of every idea, oldest first
func (s *Store) All() []Idea {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Idea, 0, len(s.ideas))
	for _, idea := range s.ideas {
		out = append(out, *idea)
	}
	return out
}

// Update replaces the fields of an existing idea
func (s *Store) Update(id, title, description, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.ideas[idx].Title = title
	s.ideas[idx].Description = description
	s.ideas[idx].URL = url
	return true
}

// Delete removes an idea. It reports false when the id is unknown.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.ideas = append(s.ideas[:idx], s.ideas[idx+1:]...)
	return true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ideas)
}

// Reset drops every idea
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ideas = nil
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, idea := range s.ideas {
		if idea.ID == id {
			return i
		}
	}
	return -1
}
