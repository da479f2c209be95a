package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a category's questions from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
}

// QuestionRepository caches question sets per category with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

// Questions returns the cached set; callers must not mutate the returned slice.
func (r *QuestionRepository) Questions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[categoryID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[categoryID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, categoryID)
		if err != nil {
			return nil, err
		}

		expiresAt := now.Add(r.ttlWithJitter())
		r.mu.Lock()
		r.cache[categoryID] = cachedQuestions{
			questions: questions,
			expiresAt: expiresAt,
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a category so the next read goes to the loader.
func (r *QuestionRepository) Invalidate(categoryID string) {
	r.mu.Lock()
	delete(r.cache, categoryID)
	r.mu.Unlock()
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// Catalog is a static category and question source backed by in-memory data (useful for tests/demos).
type Catalog struct {
	categories []domain.Category
	byCategory map[string][]domain.Question
}

func NewCatalog(categories []domain.Category, questions []domain.Question) *Catalog {
	c := &Catalog{
		categories: append([]domain.Category(nil), categories...),
		byCategory: make(map[string][]domain.Question),
	}
	sort.SliceStable(c.categories, func(i, j int) bool {
		return c.categories[i].Name < c.categories[j].Name
	})
	for _, q := range questions {
		c.byCategory[q.CategoryID] = append(c.byCategory[q.CategoryID], q)
	}
	return c
}

// LoadQuestions returns a copy so caches never share the catalog's backing array.
func (c *Catalog) LoadQuestions(_ context.Context, categoryID string) ([]domain.Question, error) {
	return append([]domain.Question(nil), c.byCategory[categoryID]...), nil
}

func (c *Catalog) Categories(_ context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), c.categories...), nil
}

func (c *Catalog) Category(_ context.Context, id string) (domain.Category, error) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}
