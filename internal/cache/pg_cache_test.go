package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "composite:mock:abc123"

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "composite:rekognition:deadbeef", CompositeKey("rekognition", "deadbeef"))
}

func TestPGCache_Set(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cache := NewPGCache(mock)
	ctx := context.Background()

	value := []byte("test value")

	mock.ExpectExec("INSERT INTO cache_entries").
		WithArgs(testKey, value, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = cache.Set(ctx, testKey, value, 5*time.Minute)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCache_Set_UsesTTL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewPGCache(mock)
	cache.now = func() time.Time { return fixed }

	mock.ExpectExec("INSERT INTO cache_entries").
		WithArgs(testKey, []byte("v"), fixed.Add(10*time.Minute)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cache.Set(context.Background(), testKey, []byte("v"), 10*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCache_Set_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO cache_entries").
		WillReturnError(errors.New("connection reset"))

	err = NewPGCache(mock).Set(context.Background(), testKey, []byte("v"), time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set cache entry")
}

func TestPGCache_Get(t *testing.T) {
	t.Run("successful get", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		cache := NewPGCache(mock)
		value := []byte("test value")

		rows := pgxmock.NewRows([]string{"value", "expires_at"}).
			AddRow(value, time.Now().Add(5*time.Minute))

		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs(testKey).
			WillReturnRows(rows)

		result, err := cache.Get(context.Background(), testKey)
		assert.NoError(t, err)
		assert.Equal(t, value, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cache miss", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs(testKey).
			WillReturnError(pgx.ErrNoRows)

		result, err := NewPGCache(mock).Get(context.Background(), testKey)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Nil(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired entry", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"value", "expires_at"}).
			AddRow([]byte("old"), time.Now().Add(-time.Minute))

		mock.ExpectQuery("SELECT value, expires_at FROM cache_entries").
			WithArgs(testKey).
			WillReturnRows(rows)
		mock.ExpectExec("DELETE FROM cache_entries WHERE key").
			WithArgs(testKey).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		result, err := NewPGCache(mock).Get(context.Background(), testKey)
		assert.ErrorIs(t, err, ErrCacheExpired)
		assert.Nil(t, result)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPGCache_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM cache_entries WHERE key").
		WithArgs(testKey).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err = NewPGCache(mock).Delete(context.Background(), testKey)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGCache_CleanupExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM cache_entries WHERE expires_at").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	count, err := NewPGCache(mock).CleanupExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type janitorDB struct {
	cleanups chan struct{}
}

func (d *janitorDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (d *janitorDB) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	select {
	case d.cleanups <- struct{}{}:
	default:
	}
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func TestPGCache_RunJanitor(t *testing.T) {
	db := &janitorDB{cleanups: make(chan struct{}, 1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewPGCache(db).RunJanitor(ctx, 10*time.Millisecond, logger)
		close(done)
	}()

	select {
	case <-db.cleanups:
	case <-time.After(time.Second):
		t.Fatal("janitor never ran a cleanup")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
