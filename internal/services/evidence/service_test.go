package evidence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/adapters/kafka"
	"veritas/internal/domain/evidence"
	"veritas/internal/events"
	"veritas/pkg/errors"
)

// mockRepo is an in-memory evidence.Repository
type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*evidence.Item

	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*evidence.Item)}
}

func (m *mockRepo) Create(ctx context.Context, item *evidence.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	stored := *item
	m.items[item.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*evidence.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *mockRepo) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*evidence.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*evidence.Item
	for _, item := range m.items {
		if item.ClaimID == claimID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateReview(ctx context.Context, id uuid.UUID, stance evidence.Stance, sourceType evidence.SourceType, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return errors.ErrNotFound
	}
	if item.ReviewedAt != nil {
		return errors.ErrAlreadyExists
	}
	item.Stance = stance
	item.SourceType = sourceType
	item.AdminVerified = verified
	now := item.CreatedAt
	item.ReviewedAt = &now
	return nil
}

func (m *mockRepo) CountByClaim(ctx context.Context, claimID uuid.UUID) (int, error) {
	items, _ := m.ListByClaim(ctx, claimID)
	return len(items), nil
}

// mockBroker records published events in place of Kafka
type mockBroker struct {
	mu     sync.Mutex
	topics []string
}

func (m *mockBroker) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics = append(m.topics, topic)
	return nil
}

func newServiceForTest(repo *mockRepo) (*Service, *mockBroker) {
	broker := &mockBroker{}
	scorer := evidence.NewScorer(7, 0.2)
	return NewService(repo, scorer, events.NewPublisher(broker)), broker
}

func validItem(claimID uuid.UUID) *evidence.Item {
	return &evidence.Item{
		ClaimID:                  claimID,
		SubmitterID:              uuid.New(),
		Content:                  "Official results published on the election commission site",
		SourceType:               evidence.SourceGovernment,
		SourceURL:                "https://example.gov/results",
		BaseQuality:              4.0,
		SourceCredibility:        0.9,
		SubmitterBetPosition:     evidence.BetNone,
		SubmitterIdentityAgeDays: 400,
	}
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	claimID := uuid.New()

	t.Run("valid submission is stored and published", func(t *testing.T) {
		repo := newMockRepo()
		svc, broker := newServiceForTest(repo)

		item := validItem(claimID)
		err := svc.Submit(ctx, item, "supports_yes")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, evidence.StanceSupportsYes, item.Stance)

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, claimID, stored.ClaimID)
		assert.Contains(t, broker.topics, kafka.TopicEvidenceSubmitted)
	})

	t.Run("legacy stance spellings are normalized", func(t *testing.T) {
		repo := newMockRepo()
		svc, _ := newServiceForTest(repo)

		tests := []struct {
			raw  string
			want evidence.Stance
		}{
			{"supporting", evidence.StanceSupportsYes},
			{"OPPOSING", evidence.StanceSupportsNo},
			{"unclear", evidence.StanceNeutral},
		}
		for _, tt := range tests {
			item := validItem(claimID)
			require.NoError(t, svc.Submit(ctx, item, tt.raw))
			assert.Equal(t, tt.want, item.Stance, "raw %q", tt.raw)
		}
	})

	t.Run("unknown stance degrades to neutral", func(t *testing.T) {
		repo := newMockRepo()
		svc, _ := newServiceForTest(repo)

		item := validItem(claimID)
		err := svc.Submit(ctx, item, "sideways")
		require.NoError(t, err)
		assert.Equal(t, evidence.StanceNeutral, item.Stance)
	})

	t.Run("invalid source type falls back to other", func(t *testing.T) {
		repo := newMockRepo()
		svc, _ := newServiceForTest(repo)

		item := validItem(claimID)
		item.SourceType = evidence.SourceType("carrier pigeon")
		err := svc.Submit(ctx, item, "yes")
		require.NoError(t, err)
		assert.Equal(t, evidence.SourceOther, item.SourceType)
	})

	t.Run("missing claim is rejected", func(t *testing.T) {
		svc, _ := newServiceForTest(newMockRepo())

		item := validItem(uuid.Nil)
		err := svc.Submit(ctx, item, "yes")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		svc, _ := newServiceForTest(newMockRepo())

		item := validItem(claimID)
		item.Content = ""
		err := svc.Submit(ctx, item, "yes")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		repo := newMockRepo()
		repo.createErr = errors.ErrInternal
		svc, _ := newServiceForTest(repo)

		err := svc.Submit(ctx, validItem(claimID), "yes")
		assert.ErrorIs(t, err, errors.ErrInternal)
	})
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	claimID := uuid.New()

	submit := func(t *testing.T, svc *Service, stance string) *evidence.Item {
		t.Helper()
		item := validItem(claimID)
		require.NoError(t, svc.Submit(ctx, item, stance))
		return item
	}

	t.Run("review amends the item and re-scores the pool", func(t *testing.T) {
		repo := newMockRepo()
		svc, broker := newServiceForTest(repo)
		item := submit(t, svc, "neutral")

		pool, err := svc.Review(ctx, item.ID, evidence.StanceSupportsNo, evidence.SourceNews, true)
		require.NoError(t, err)

		stored, _ := repo.GetByID(ctx, item.ID)
		assert.Equal(t, evidence.StanceSupportsNo, stored.Stance)
		assert.Equal(t, evidence.SourceNews, stored.SourceType)
		assert.True(t, stored.AdminVerified)
		assert.NotNil(t, stored.ReviewedAt)

		assert.Greater(t, pool.WeightedNo, 0.0, "reviewed stance feeds the pool immediately")
		assert.Contains(t, broker.topics, kafka.TopicEvidenceReviewed)
	})

	t.Run("second review of the same item is rejected", func(t *testing.T) {
		repo := newMockRepo()
		svc, _ := newServiceForTest(repo)
		item := submit(t, svc, "yes")

		_, err := svc.Review(ctx, item.ID, evidence.StanceSupportsYes, evidence.SourceNews, true)
		require.NoError(t, err)

		_, err = svc.Review(ctx, item.ID, evidence.StanceSupportsNo, evidence.SourceBlog, false)
		assert.ErrorIs(t, err, errors.ErrAlreadyExists)
	})

	t.Run("invalid stance or source type is rejected", func(t *testing.T) {
		svc, _ := newServiceForTest(newMockRepo())

		_, err := svc.Review(ctx, uuid.New(), evidence.Stance("bogus"), evidence.SourceNews, true)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		_, err = svc.Review(ctx, uuid.New(), evidence.StanceNeutral, evidence.SourceType("bogus"), true)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("unknown item returns not found", func(t *testing.T) {
		svc, _ := newServiceForTest(newMockRepo())

		_, err := svc.Review(ctx, uuid.New(), evidence.StanceNeutral, evidence.SourceNews, true)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

func TestService_ScoreClaim(t *testing.T) {
	ctx := context.Background()
	claimID := uuid.New()

	repo := newMockRepo()
	svc, _ := newServiceForTest(repo)

	yes := validItem(claimID)
	require.NoError(t, svc.Submit(ctx, yes, "yes"))
	no := validItem(claimID)
	require.NoError(t, svc.Submit(ctx, no, "no"))

	pool, err := svc.ScoreClaim(ctx, claimID)
	require.NoError(t, err)

	assert.Equal(t, 2, pool.Items)
	assert.Greater(t, pool.WeightedYes, 0.0)
	assert.Greater(t, pool.WeightedNo, 0.0)

	items, err := svc.ListByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
