package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches each category's question set in Redis as one JSON value
// and falls back to a loader on cache miss.
//
//	SET quiz:category:{categoryID}:questions <json> EX <ttl>
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	if questions, ok := r.cached(ctx, categoryID); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(categoryID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if questions, ok := r.cached(ctx, categoryID); ok {
			return questions, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, categoryID)
		if err != nil {
			return nil, err
		}

		// Empty sets are not cached so newly imported questions show up immediately.
		if len(questions) > 0 {
			if raw, err := json.Marshal(questions); err == nil {
				_ = r.client.Set(ctx, r.key(categoryID), raw, r.ttlWithJitter()).Err()
			}
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a category's cached set.
func (r *QuestionRepository) Invalidate(ctx context.Context, categoryID string) error {
	return r.client.Del(ctx, r.key(categoryID)).Err()
}

// cached treats redis.Nil and any Redis failure alike: as a miss.
func (r *QuestionRepository) cached(ctx context.Context, categoryID string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(categoryID)).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) key(categoryID string) string {
	return "quiz:category:" + categoryID + ":questions"
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
