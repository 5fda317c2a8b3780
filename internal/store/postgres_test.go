package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"livepoll/internal/domain"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("livepoll"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgresStore(t *testing.T) {
	st := setupPostgresStore(t)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		created, err := st.Create(ctx, "Best database?", []string{"Postgres", "SQLite"})
		require.NoError(t, err)
		require.NotEmpty(t, created.PollID)

		got, err := st.Get(ctx, created.PollID)
		require.NoError(t, err)
		assert.Equal(t, "Best database?", got.Question)
		assert.Equal(t, []domain.OptionCount{{Text: "Postgres"}, {Text: "SQLite"}}, got.Options)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := st.Get(ctx, "does-not-exist")
		require.ErrorIs(t, err, domain.ErrPollNotFound)
	})

	t.Run("create rejects invalid input", func(t *testing.T) {
		_, err := st.Create(ctx, "Q", []string{"A", "a"})
		require.ErrorIs(t, err, domain.ErrDuplicateOptions)
	})

	t.Run("apply vote", func(t *testing.T) {
		created, err := st.Create(ctx, "Q", []string{"A", "B", "C"})
		require.NoError(t, err)

		snap, err := st.ApplyVote(ctx, created.PollID, 2, "voter-1")
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Options[2].Votes)
		assert.Equal(t, 1, snap.TotalVotes)

		_, err = st.ApplyVote(ctx, created.PollID, 0, "voter-1")
		require.ErrorIs(t, err, domain.ErrAlreadyVoted)

		_, err = st.ApplyVote(ctx, created.PollID, 9, "voter-2")
		require.ErrorIs(t, err, domain.ErrInvalidOption)

		_, err = st.ApplyVote(ctx, "does-not-exist", 0, "voter-2")
		require.ErrorIs(t, err, domain.ErrPollNotFound)

		// rejected votes must leave counts and voter set untouched
		got, err := st.Get(ctx, created.PollID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalVotes)
	})

	t.Run("concurrent votes", func(t *testing.T) {
		created, err := st.Create(ctx, "Q", []string{"A", "B"})
		require.NoError(t, err)

		const n = 100
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := st.ApplyVote(ctx, created.PollID, 0, fmt.Sprintf("voter-%d", i))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := st.Get(ctx, created.PollID)
		require.NoError(t, err)
		assert.Equal(t, n, got.Options[0].Votes)
	})
}
