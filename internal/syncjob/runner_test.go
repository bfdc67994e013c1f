package syncjob

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romvault/internal/commit"
	"romvault/internal/reconcile"
	"romvault/internal/scraper"
	"romvault/internal/store"
	"romvault/pkg/database"
	"romvault/pkg/logging"
	"romvault/pkg/models"
)

type stubSource struct {
	name  string
	games []models.Game
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchAll(context.Context) ([]models.Game, error) {
	return s.games, s.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) BroadcastJSON(v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, v.(Event))
}

// failingStore wraps a real store and breaks selected calls.
type failingStore struct {
	*store.Store
	loadErr   error
	commitErr error
	commits   int
}

func (f *failingStore) LoadAll(ctx context.Context) ([]models.GameDoc, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Store.LoadAll(ctx)
}

func (f *failingStore) CommitBatch(ctx context.Context, ops []commit.Op) error {
	f.commits++
	if f.commitErr != nil {
		return f.commitErr
	}
	return f.Store.CommitBatch(ctx, ops)
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "sync.db")})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	require.NoError(t, database.Migrate(db))
	return store.New(db, "games")
}

func fixedCategorizer() *scraper.Categorizer {
	return scraper.DefaultCategorizer().WithPicker(func(int) int { return 0 })
}

func newTestRunner(st DocumentStore, batch int, sources ...scraper.Source) *Runner {
	agg := scraper.NewAggregator(fixedCategorizer(), sources...)
	agg.Logger = logging.Nop
	r := NewRunner(st, agg, reconcile.Rules{
		PlaceholderPrefixes: []string{"https://via.placeholder.com"},
		FallbackCategory:    "Other",
	}, batch)
	r.Logger = logging.Nop
	r.Committer.Logger = logging.Nop
	return r
}

func game(name, system, url string) models.Game {
	return models.Game{Name: name, System: system, URL: url, Thumbnail: url + ".png", Source: "stub"}
}

func TestRunInsertsThenIsIdempotent(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	src := &stubSource{name: "a", games: []models.Game{
		game("Super Mario Bros.", "nes", "http://a/smb"),
		game("Tetris", "gb", "http://a/tetris"),
		game("Sonic", "md", "http://a/sonic"),
	}}
	r := newTestRunner(st, 2, src)

	first, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 2, first.Batches)

	second, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 3, second.Unchanged)
	assert.Equal(t, 0, second.Batches)

	docs, err := st.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestRunUpdatesChangedFields(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	src := &stubSource{name: "a", games: []models.Game{game("Tetris", "gb", "http://a/tetris")}}
	r := newTestRunner(st, 10, src)
	_, err := r.Run(ctx)
	require.NoError(t, err)

	src.games = []models.Game{game("TETRIS", "gb", "http://b/tetris")}
	run, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, run.Inserted)
	assert.Equal(t, 1, run.Updated)

	docs, err := st.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "http://b/tetris", docs[0].URL)
	assert.Equal(t, "Tetris", docs[0].Name, "stored name is kept")
}

func TestRunPartialSourceFailure(t *testing.T) {
	st := setupStore(t)

	ok := &stubSource{name: "ok", games: []models.Game{game("Zelda", "nes", "http://ok/zelda")}}
	bad := &stubSource{name: "bad", err: errors.New("connection refused")}
	r := newTestRunner(st, 10, bad, ok)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, run.Inserted)
	assert.Equal(t, []string{"bad"}, run.FailedSources)
}

func TestRunAllSourcesFailed(t *testing.T) {
	st := setupStore(t)
	bad := &stubSource{name: "bad", err: errors.New("down")}
	r := newTestRunner(st, 10, bad)

	run, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, scraper.ErrNoSources)
	assert.False(t, run.OK())
}

func TestRunLoadFailureWritesNothing(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), loadErr: errors.New("disk gone")}
	src := &stubSource{name: "a", games: []models.Game{game("Zelda", "nes", "http://a/zelda")}}
	r := newTestRunner(fs, 10, src)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoadPersisted)
	assert.Zero(t, fs.commits)
}

func TestRunCommitFailurePropagates(t *testing.T) {
	fs := &failingStore{Store: setupStore(t), commitErr: errors.New("write failed")}
	src := &stubSource{name: "a", games: []models.Game{game("Zelda", "nes", "http://a/zelda")}}
	r := newTestRunner(fs, 10, src)

	run, err := r.Run(context.Background())
	require.Error(t, err)

	var be *commit.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.Committed)
	assert.Equal(t, 0, run.Inserted)
	assert.Contains(t, run.Error, "write failed")
}

func TestRunRecordsAndNotifies(t *testing.T) {
	st := setupStore(t)
	n := &recordingNotifier{}
	src := &stubSource{name: "a", games: []models.Game{game("Zelda", "nes", "http://a/zelda")}}
	r := newTestRunner(st, 10, src)
	r.Recorder = st
	r.Notifier = n

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	last, err := st.LastRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Inserted)

	require.Len(t, n.events, 1)
	assert.Equal(t, "sync.completed", n.events[0].Type)
}

type blockingAggregator struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingAggregator) FetchAndMerge(ctx context.Context) (scraper.Result, error) {
	close(b.started)
	<-b.release
	return scraper.Result{}, nil
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	st := setupStore(t)
	agg := &blockingAggregator{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRunner(st, agg, reconcile.Rules{}, 10)
	r.Logger = logging.Nop

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	<-agg.started
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(agg.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not finish")
	}
}

func TestStartRunsInBackground(t *testing.T) {
	st := setupStore(t)
	n := &recordingNotifier{}
	src := &stubSource{name: "a", games: []models.Game{game("Zelda", "nes", "http://a/zelda")}}
	r := newTestRunner(st, 10, src)
	r.Notifier = n

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		n.mu.Lock()
		defer n.mu.Unlock()
		return len(n.events) == 1
	}, 5*time.Second, 10*time.Millisecond)

	n.mu.Lock()
	assert.Equal(t, "sync.completed", n.events[0].Type)
	n.mu.Unlock()
}

func TestStartRejectsWhileRunning(t *testing.T) {
	agg := &blockingAggregator{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRunner(setupStore(t), agg, reconcile.Rules{}, 10)
	r.Logger = logging.Nop

	require.NoError(t, r.Start(context.Background()))
	<-agg.started
	assert.ErrorIs(t, r.Start(context.Background()), ErrRunInProgress)
	close(agg.release)
}
