package chatlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func record(author, text string, sec int, relevant bool) models.ChatLogRecord {
	ts := time.Date(2024, 5, 1, 10, 0, sec, 0, time.UTC)
	msg := models.ChatMessage{Author: author, Text: text, Timestamp: ts, Source: models.SourceAPI}
	return models.NewChatLogRecord(msg, "", relevant, "default")
}

type failingStore struct {
	mu    sync.Mutex
	fail  bool
	saved []models.ChatLogRecord
}

func (f *failingStore) SaveBatch(ctx context.Context, rs []models.ChatLogRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.saved = append(f.saved, rs...)
	return nil
}

func TestQueue_DrainEmpties(t *testing.T) {
	var q Queue
	q.Push(record("a", "1", 1, false))
	q.Push(record("b", "2", 2, true))
	assert.Equal(t, 2, q.Len())

	out := q.Drain()
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Author)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestGormStore_SaveAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rs := []models.ChatLogRecord{
		record("Alice", "hi", 1, true),
		record("Bob", "lol", 2, false),
		record("Carl", "what is starship?", 3, true),
	}
	rs[2].Response = "A big rocket."
	require.NoError(t, store.SaveBatch(ctx, rs))
	require.NoError(t, store.SaveBatch(ctx, nil))

	n, err := store.Count(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = store.Count(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Carl", recent[0].Author)
	assert.Equal(t, "A big rocket.", recent[0].Response)
	assert.Equal(t, models.SourceAPI, recent[0].Source)
	assert.Equal(t, rs[2].ID, recent[0].ID)
}

func TestWriter_FlushRequeuesOnFailure(t *testing.T) {
	var q Queue
	store := &failingStore{fail: true}
	w := NewWriter(&q, store, time.Hour, logger.Nop())

	q.Push(record("a", "1", 1, false))
	require.Error(t, w.Flush(context.Background()))
	q.Push(record("b", "2", 2, false))
	assert.Equal(t, 2, q.Len())

	store.fail = false
	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, store.saved, 2)
	// order is kept across the retry
	assert.Equal(t, "a", store.saved[0].Author)
	assert.Equal(t, "b", store.saved[1].Author)
}

func TestWriter_RunFlushesOnTickAndShutdown(t *testing.T) {
	var q Queue
	store := &failingStore{}
	w := NewWriter(&q, store, 20*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	q.Push(record("a", "1", 1, false))
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.saved) == 1
	}, time.Second, 5*time.Millisecond)

	q.Push(record("b", "2", 2, false))
	cancel()
	<-done

	assert.Len(t, store.saved, 2)
	assert.Equal(t, 0, q.Len())
}
