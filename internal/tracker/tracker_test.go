package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-log/internal/metrics"
	"wellness-log/internal/models"
	"wellness-log/internal/storage"
)

// fakeAI scripts capability responses. A non-nil gate blocks every call until closed.
type fakeAI struct {
	mu       sync.Mutex
	analysis *models.MealAnalysis
	reply    string
	meta     *models.JournalMetadata
	polished string
	err      error
	gate     chan struct{}
	started  chan struct{}

	history  []models.ChatMessage
	metaRuns int
}

func (f *fakeAI) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeAI) AnalyzeMeal(ctx context.Context, description string) (*models.MealAnalysis, error) {
	f.wait()
	return f.analysis, f.err
}

func (f *fakeAI) Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	f.wait()
	f.mu.Lock()
	f.history = history
	f.mu.Unlock()
	return f.reply, f.err
}

func (f *fakeAI) JournalMetadata(ctx context.Context, entry string) (*models.JournalMetadata, error) {
	f.wait()
	f.mu.Lock()
	f.metaRuns++
	f.mu.Unlock()
	return f.meta, f.err
}

func (f *fakeAI) PolishJournal(ctx context.Context, entry string) (string, error) {
	f.wait()
	return f.polished, f.err
}

func num(v float64) *float64 { return &v }

var testGoals = Goals{CalorieGoal: 2000, WaterGoalMl: 2500}

func newSQLiteStore(t *testing.T) (*storage.SQLiteStorage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wellness.db")
	s, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func newTestTracker(t *testing.T, ai Capability) (*Tracker, *storage.SQLiteStorage) {
	t.Helper()
	s, _ := newSQLiteStore(t)
	seq := 0
	tr := New(context.Background(), s, ai, testGoals, zerolog.Nop(),
		WithIDs(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 9, 0, seq, 0, time.UTC) }),
	)
	return tr, s
}

func TestWaterScenario(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, &fakeAI{})

	_, err := tr.AddWater(ctx, 250)
	require.NoError(t, err)
	_, err = tr.AddWater(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 750, TotalWaterMl(tr.WaterLogs()))

	tr.UndoWater(ctx)
	assert.Equal(t, 250, TotalWaterMl(tr.WaterLogs()))
	assert.Equal(t, 250, tr.WaterLogs()[0].AmountMl)
}

func TestUndoWaterOnEmptyIsNoop(t *testing.T) {
	tr, _ := newTestTracker(t, &fakeAI{})
	assert.Empty(t, tr.UndoWater(context.Background()))
	assert.Empty(t, tr.WaterLogs())
}

func TestAddWaterRejectsNonPositive(t *testing.T) {
	tr, _ := newTestTracker(t, &fakeAI{})
	_, err := tr.AddWater(context.Background(), 0)
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Empty(t, tr.WaterLogs())
}

func TestMealAnalysisScenario(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{analysis: &models.MealAnalysis{Name: "Salad", Calories: num(300), Protein: num(10), Carbs: num(20), Fats: num(15)}}
	tr, _ := newTestTracker(t, ai)

	meal, err := tr.AnalyzeAndAddMeal(ctx, "a big green salad")
	require.NoError(t, err)
	assert.Equal(t, "Salad", meal.Name)
	assert.Equal(t, 300.0, meal.Calories)
	assert.NotEmpty(t, meal.ID)
	assert.False(t, meal.Timestamp.IsZero())

	require.Len(t, tr.Meals(), 1)
	overview := tr.Render("overview").(OverviewView)
	assert.Equal(t, 15, overview.CaloriePercent)
	assert.Equal(t, models.Macros{Protein: 10, Carbs: 20, Fats: 15}, overview.Macros)
	assert.False(t, overview.MacroChartEmpty)
}

func TestMealAnalysisFailuresRecordNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("transport", func(t *testing.T) {
		tr, _ := newTestTracker(t, &fakeAI{err: errors.New("dial tcp: connection refused")})
		_, err := tr.AnalyzeAndAddMeal(ctx, "pasta")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrCapabilityUnavailable))
		assert.False(t, errors.Is(err, models.ErrAnalysisFailed))
		assert.Empty(t, tr.Meals())
	})

	t.Run("malformed", func(t *testing.T) {
		tr, _ := newTestTracker(t, &fakeAI{err: fmt.Errorf("analyze meal: %w", models.ErrMalformedResponse)})
		_, err := tr.AnalyzeAndAddMeal(ctx, "pasta")
		assert.True(t, errors.Is(err, models.ErrAnalysisFailed))
		assert.Empty(t, tr.Meals())
	})

	t.Run("nil analysis", func(t *testing.T) {
		tr, _ := newTestTracker(t, &fakeAI{})
		_, err := tr.AnalyzeAndAddMeal(ctx, "pasta")
		assert.True(t, errors.Is(err, models.ErrAnalysisFailed))
		assert.Empty(t, tr.Meals())
	})

	t.Run("empty input", func(t *testing.T) {
		tr, _ := newTestTracker(t, &fakeAI{})
		_, err := tr.AnalyzeAndAddMeal(ctx, "   ")
		assert.True(t, errors.Is(err, models.ErrEmptyInput))
	})
}

func TestRemoveMeal(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, &fakeAI{})
	a := tr.AddMeal(ctx, models.Meal{Name: "Oats", Calories: 150})
	tr.AddMeal(ctx, models.Meal{Name: "Eggs", Calories: 140})

	assert.Len(t, tr.RemoveMeal(ctx, "does-not-exist"), 2)
	left := tr.RemoveMeal(ctx, a.ID)
	require.Len(t, left, 1)
	assert.Equal(t, "Eggs", left[0].Name)
}

func TestSendChat(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{reply: "Keep going!"}
	tr, _ := newTestTracker(t, ai)

	turn, err := tr.SendChat(ctx, "I skipped the gym")
	require.NoError(t, err)
	assert.False(t, turn.Degraded)
	assert.Equal(t, models.RoleUser, turn.User.Role)
	assert.Equal(t, models.RoleModel, turn.Reply.Role)
	assert.Equal(t, "Keep going!", turn.Reply.Text)
	assert.Empty(t, ai.history, "first turn has no history")

	_, err = tr.SendChat(ctx, "thanks")
	require.NoError(t, err)
	assert.Len(t, ai.history, 2, "history excludes the new message")
	assert.Len(t, tr.ChatMessages(), 4)
}

func TestSendChatFailureStillAppendsOneReply(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{err: fmt.Errorf("reply: %w", models.ErrCapabilityUnavailable)}
	tr, _ := newTestTracker(t, ai)

	turn, err := tr.SendChat(ctx, "hello?")
	require.NoError(t, err)
	assert.True(t, turn.Degraded)

	msgs := tr.ChatMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleModel, msgs[1].Role)
	assert.Equal(t, models.ChatConnectionErrorText, msgs[1].Text)

	ai.err, ai.reply = nil, ""
	turn, err = tr.SendChat(ctx, "still there?")
	require.NoError(t, err, "conversation stays resumable")
	assert.Equal(t, models.ChatEmptyReplyText, turn.Reply.Text)
	assert.Len(t, tr.ChatMessages(), 4)
}

func TestSaveJournalEntryWithoutMetadata(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{meta: &models.JournalMetadata{Title: "unused"}}
	tr, _ := newTestTracker(t, ai)

	entry, err := tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "Felt good today."})
	require.NoError(t, err)
	assert.Equal(t, models.UntitledEntry, entry.Title)
	assert.Equal(t, []string{}, entry.Tags)
	assert.Zero(t, ai.metaRuns)
}

func TestSaveJournalEntryAutoMetadata(t *testing.T) {
	ctx := context.Background()

	ai := &fakeAI{meta: &models.JournalMetadata{Title: "Good Day", Tags: []string{"mood"}}}
	tr, _ := newTestTracker(t, ai)
	entry, err := tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "Felt good today.", AutoMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, "Good Day", entry.Title)
	assert.Equal(t, []string{"mood"}, entry.Tags)

	failing := &fakeAI{err: errors.New("timeout")}
	tr, _ = newTestTracker(t, failing)
	entry, err = tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "Felt good today.", AutoMetadata: true})
	require.NoError(t, err, "metadata failure is silent")
	assert.Equal(t, models.UntitledEntry, entry.Title)
	assert.Empty(t, entry.Tags)
}

func TestSaveJournalEntrySuppliedMetadata(t *testing.T) {
	ai := &fakeAI{}
	tr, _ := newTestTracker(t, ai)
	entry, err := tr.SaveJournalEntry(context.Background(), models.JournalDraft{
		Content:      "x",
		Metadata:     &models.JournalMetadata{Title: " Mine ", Tags: []string{"a", "b", "c", "d", "e", "f"}},
		AutoMetadata: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mine", entry.Title)
	assert.Len(t, entry.Tags, models.MaxJournalTags)
	assert.Zero(t, ai.metaRuns)
}

func TestPolishJournal(t *testing.T) {
	ctx := context.Background()

	tr, _ := newTestTracker(t, &fakeAI{polished: "Polished."})
	got, err := tr.PolishJournal(ctx, "rough")
	require.NoError(t, err)
	assert.Equal(t, "Polished.", got)

	tr, _ = newTestTracker(t, &fakeAI{err: errors.New("503")})
	got, err = tr.PolishJournal(ctx, "rough")
	require.NoError(t, err)
	assert.Equal(t, "rough", got)

	_, err = tr.PolishJournal(ctx, "")
	assert.True(t, errors.Is(err, models.ErrEmptyInput))
}

func TestGenerateJournalMetadata(t *testing.T) {
	ctx := context.Background()

	tr, _ := newTestTracker(t, &fakeAI{meta: &models.JournalMetadata{Title: "Walk", Tags: []string{"outdoors"}}})
	meta, generated, err := tr.GenerateJournalMetadata(ctx, "went for a walk")
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Equal(t, "Walk", meta.Title)

	tr, _ = newTestTracker(t, &fakeAI{err: errors.New("down")})
	meta, generated, err = tr.GenerateJournalMetadata(ctx, "went for a walk")
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, models.UntitledEntry, meta.Title)
}

func TestBusyViewRejectsDuplicateSubmission(t *testing.T) {
	ctx := context.Background()
	ai := &fakeAI{
		analysis: &models.MealAnalysis{Name: "Soup", Calories: num(200), Protein: num(5), Carbs: num(20), Fats: num(5)},
		gate:     make(chan struct{}),
		started:  make(chan struct{}, 1),
	}
	reg := prometheus.NewRegistry()
	s, _ := newSQLiteStore(t)
	tr := New(ctx, s, ai, testGoals, zerolog.Nop(), WithMetrics(metrics.New(reg)))

	done := make(chan error, 1)
	go func() {
		_, err := tr.AnalyzeAndAddMeal(ctx, "soup")
		done <- err
	}()
	<-ai.started

	_, err := tr.AnalyzeAndAddMeal(ctx, "soup again")
	assert.True(t, errors.Is(err, models.ErrBusy))

	// Other views are independent.
	_, err = tr.AddWater(ctx, 250)
	assert.NoError(t, err)

	close(ai.gate)
	require.NoError(t, <-done)
	assert.Len(t, tr.Meals(), 1)

	ai.started = nil
	_, err = tr.AnalyzeAndAddMeal(ctx, "soup again")
	assert.NoError(t, err, "guard released after completion")
}

func TestCollectionsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	s, path := newSQLiteStore(t)
	ai := &fakeAI{reply: "hi", meta: &models.JournalMetadata{Title: "T", Tags: []string{"x"}}}

	tr := New(ctx, s, ai, testGoals, zerolog.Nop())
	tr.AddMeal(ctx, models.Meal{Name: "Oats", Calories: 150, Protein: 5, Carbs: 27, Fats: 3})
	tr.AddMeal(ctx, models.Meal{Name: "Eggs", Calories: 140})
	tr.RemoveMeal(ctx, tr.Meals()[1].ID)
	_, _ = tr.AddWater(ctx, 500)
	_, _ = tr.AddWater(ctx, 250)
	tr.UndoWater(ctx)
	_, _ = tr.SendChat(ctx, "hello")
	_, _ = tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "entry", AutoMetadata: true})
	require.NoError(t, s.Close())

	reopened, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer reopened.Close()
	again := New(ctx, reopened, ai, testGoals, zerolog.Nop())

	assertSameRecords(t, tr.Meals(), again.Meals(), func(m models.Meal) time.Time { return m.Timestamp })
	assertSameRecords(t, tr.WaterLogs(), again.WaterLogs(), func(w models.WaterLog) time.Time { return w.Timestamp })
	assertSameRecords(t, tr.ChatMessages(), again.ChatMessages(), func(c models.ChatMessage) time.Time { return c.Timestamp })
	assertSameRecords(t, tr.JournalEntries(), again.JournalEntries(), func(j models.JournalEntry) time.Time { return j.Timestamp })
	assert.Len(t, again.Meals(), 1)
	assert.Len(t, again.WaterLogs(), 1)
	assert.Len(t, again.ChatMessages(), 2)
}

// assertSameRecords compares timestamps with time.Equal and everything else field by field.
func assertSameRecords[T any](t *testing.T, want, got []T, ts func(T) time.Time) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, ts(want[i]).Equal(ts(got[i])), "timestamp %d", i)
		assert.Equal(t, fmt.Sprintf("%+v", stripTime(want[i])), fmt.Sprintf("%+v", stripTime(got[i])))
	}
}

func stripTime(v any) any {
	switch r := v.(type) {
	case models.Meal:
		r.Timestamp = time.Time{}
		return r
	case models.WaterLog:
		r.Timestamp = time.Time{}
		return r
	case models.ChatMessage:
		r.Timestamp = time.Time{}
		return r
	case models.JournalEntry:
		r.Timestamp = time.Time{}
		return r
	}
	return v
}

type failingStore struct{ puts int }

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, models.ErrNotFound }
func (f *failingStore) Put(context.Context, string, []byte) error {
	f.puts++
	return errors.New("read-only filesystem")
}
func (f *failingStore) Close() error { return nil }

func TestPersistenceFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	tr := New(ctx, store, &fakeAI{}, testGoals, zerolog.Nop(), WithMetrics(metrics.New(prometheus.NewRegistry())))

	_, err := tr.AddWater(ctx, 250)
	require.NoError(t, err)
	assert.Len(t, tr.WaterLogs(), 1, "in-memory state is the source of truth")
	assert.Equal(t, 1, store.puts)
}

func TestRenderViews(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(t, &fakeAI{})

	empty := tr.Render("overview").(OverviewView)
	assert.True(t, empty.MacroChartEmpty)
	assert.Equal(t, 0, empty.CaloriePercent)

	_, _ = tr.AddWater(ctx, 500)
	_, _ = tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "first"})
	_, _ = tr.SaveJournalEntry(ctx, models.JournalDraft{Content: "second"})

	h := tr.Render("hydration").(HydrationView)
	assert.Equal(t, 500, h.TotalMl)
	assert.Equal(t, 20, h.Percent)
	assert.Equal(t, 2500, h.GoalMl)

	j := tr.Render("journal").(JournalView)
	require.Len(t, j.Entries, 2)
	assert.Equal(t, "second", j.Entries[0].Content, "newest first")
	assert.Equal(t, "first", tr.JournalEntries()[0].Content, "render does not reorder state")

	assert.Equal(t, models.ViewSupport, tr.Render("support-chat").Name())
	assert.Equal(t, models.ViewDiet, tr.Render("diet").Name())
	assert.Equal(t, models.ViewOverview, tr.Render("nonsense").Name())
}
