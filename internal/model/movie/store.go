package movie

// Store exposes catalog retrieval for handlers and the story service.
type Store interface {
	List() []Movie
	FindByID(id string) (Movie, bool)
}

// MemoryStore implements Store with an in-memory slice; the catalog is
// static read-only data.
type MemoryStore struct {
	items []Movie
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied movies.
func NewMemoryStore(items []Movie) *MemoryStore {
	return &MemoryStore{items: append([]Movie(nil), items...)}
}

// List returns the full catalog.
func (s *MemoryStore) List() []Movie {
	return append([]Movie(nil), s.items...)
}

// FindByID looks up a movie by identifier.
func (s *MemoryStore) FindByID(id string) (Movie, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Movie{}, false
}

// FindCharacter resolves a character id within a movie.
func (m Movie) FindCharacter(id string) (Character, bool) {
	for _, c := range m.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}
