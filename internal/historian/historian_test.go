package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/ageofchess/internal/cache"
)

const queue = "test_actions"

// sink records inserted batches and can be told to fail.
type sink struct {
	mu      sync.Mutex
	batches [][]cache.GameActionRecord
	failN   int
}

func (s *sink) insert(_ context.Context, recs []cache.GameActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("database unavailable")
	}
	s.batches = append(s.batches, append([]cache.GameActionRecord(nil), recs...))
	return nil
}

func (s *sink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func setup(t *testing.T) (*redis.Client, *logrus.Logger) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	logger, _ := test.NewNullLogger()
	return client, logger
}

func push(t *testing.T, client *redis.Client, gameID uuid.UUID, index int) {
	t.Helper()
	data, err := json.Marshal(cache.GameActionRecord{
		GameID:      gameID,
		ActionIndex: index,
		ActionType:  "move",
		ActionPayload: map[string]interface{}{
			"notation": "Ka1-a2",
		},
		Timestamp: time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, client.RPush(context.Background(), queue, data).Err())
}

func runService(t *testing.T, svc *Service) (context.CancelFunc, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestFlushesFullBatchesAndStragglers(t *testing.T) {
	client, logger := setup(t)
	s := &sink{}
	svc := New(client, queue, 2, 50*time.Millisecond, s.insert, logger)

	id := uuid.New()
	for i := 0; i < 3; i++ {
		push(t, client, id, i)
	}
	runService(t, svc)

	require.Eventually(t, func() bool { return s.total() == 3 }, 5*time.Second, 20*time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.batches[0], 2)
	assert.Equal(t, 0, s.batches[0][0].ActionIndex)
	assert.Equal(t, 2, s.batches[len(s.batches)-1][0].ActionIndex)
}

func TestFlushesOnShutdown(t *testing.T) {
	client, logger := setup(t)
	s := &sink{}
	svc := New(client, queue, 100, time.Hour, s.insert, logger)

	push(t, client, uuid.New(), 0)
	cancel, done := runService(t, svc)

	require.Eventually(t, func() bool {
		n, err := client.LLen(context.Background(), queue).Result()
		return err == nil && n == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, s.total())

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Equal(t, 1, s.total())
}

func TestRetriesFailedBatch(t *testing.T) {
	client, logger := setup(t)
	s := &sink{failN: 2}
	svc := New(client, queue, 1, 10*time.Millisecond, s.insert, logger)

	push(t, client, uuid.New(), 7)
	runService(t, svc)

	require.Eventually(t, func() bool { return s.total() == 1 }, 5*time.Second, 20*time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, 7, s.batches[0][0].ActionIndex)
}

func TestSkipsMalformedRecords(t *testing.T) {
	client, logger := setup(t)
	s := &sink{}
	svc := New(client, queue, 1, 10*time.Millisecond, s.insert, logger)

	require.NoError(t, client.RPush(context.Background(), queue, "not json").Err())
	push(t, client, uuid.New(), 1)
	runService(t, svc)

	require.Eventually(t, func() bool { return s.total() == 1 }, 5*time.Second, 20*time.Millisecond)
}
