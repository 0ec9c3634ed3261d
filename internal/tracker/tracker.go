// Package tracker owns the four wellness collections for the life of the process.
// Every mutation goes through a Tracker method and is followed by a best-effort
// write of the affected collection.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wellness-log/internal/metrics"
	"wellness-log/internal/models"
	"wellness-log/internal/storage"
)

// Capability is the generative service the tracker delegates to.
type Capability interface {
	AnalyzeMeal(ctx context.Context, description string) (*models.MealAnalysis, error)
	Reply(ctx context.Context, history []models.ChatMessage, message string) (string, error)
	JournalMetadata(ctx context.Context, entry string) (*models.JournalMetadata, error)
	PolishJournal(ctx context.Context, entry string) (string, error)
}

type Goals struct {
	CalorieGoal float64
	WaterGoalMl int
}

// ChatTurn is one accepted user message and the model message appended for it.
type ChatTurn struct {
	User     models.ChatMessage `json:"user"`
	Reply    models.ChatMessage `json:"reply"`
	Degraded bool               `json:"degraded"`
}

type Tracker struct {
	mu      sync.Mutex
	meals   *Collection[models.Meal]
	water   *Collection[models.WaterLog]
	chat    *Collection[models.ChatMessage]
	journal *Collection[models.JournalEntry]

	store    storage.RecordStore
	ai       Capability
	goals    Goals
	inflight inflight
	metrics  *metrics.Metrics
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

type Option func(*Tracker)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock replaces the creation-time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithIDs(newID func() string) Option {
	return func(t *Tracker) { t.newID = newID }
}

// New loads the collections from store. Unreadable collections start empty.
func New(ctx context.Context, store storage.RecordStore, ai Capability, goals Goals, log zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		ai:       ai,
		goals:    goals,
		inflight: inflight{busy: map[models.View]bool{}},
		log:      log.With().Str("component", "tracker").Logger(),
		now:      models.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.meals = NewCollection(storage.Load(ctx, store, storage.KeyMeals, []models.Meal{}, t.log))
	t.water = NewCollection(storage.Load(ctx, store, storage.KeyWaterLogs, []models.WaterLog{}, t.log))
	t.chat = NewCollection(storage.Load(ctx, store, storage.KeyChatMessages, []models.ChatMessage{}, t.log))
	t.journal = NewCollection(storage.Load(ctx, store, storage.KeyJournalEntries, []models.JournalEntry{}, t.log))

	t.log.Info().
		Int("meals", t.meals.Len()).
		Int("water_logs", t.water.Len()).
		Int("chat_messages", t.chat.Len()).
		Int("journal_entries", t.journal.Len()).
		Msg("collections loaded")
	return t
}

func (t *Tracker) Goals() Goals { return t.goals }

func (t *Tracker) Meals() []models.Meal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.meals.Items()
}

func (t *Tracker) WaterLogs() []models.WaterLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.water.Items()
}

func (t *Tracker) ChatMessages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chat.Items()
}

func (t *Tracker) JournalEntries() []models.JournalEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.journal.Items()
}

// --- Diet ---

// AnalyzeAndAddMeal asks the capability for a nutrition estimate and appends
// the resulting meal. A malformed estimate returns ErrAnalysisFailed, a
// transport failure ErrCapabilityUnavailable; neither records anything.
func (t *Tracker) AnalyzeAndAddMeal(ctx context.Context, description string) (models.Meal, error) {
	if strings.TrimSpace(description) == "" {
		return models.Meal{}, models.ErrEmptyInput
	}
	release, err := t.begin(models.ViewDiet)
	if err != nil {
		return models.Meal{}, err
	}
	defer release()

	analysis, err := t.ai.AnalyzeMeal(ctx, description)
	if err == nil {
		err = analysis.Validate()
	}
	if err != nil {
		if errors.Is(err, models.ErrMalformedResponse) {
			return models.Meal{}, fmt.Errorf("%w: %v", models.ErrAnalysisFailed, err)
		}
		if !errors.Is(err, models.ErrCapabilityUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrCapabilityUnavailable, err)
		}
		return models.Meal{}, err
	}

	return t.AddMeal(ctx, analysis.ToMeal(t.newID(), t.now())), nil
}

// AddMeal appends meal, assigning an id and timestamp when they are unset.
func (t *Tracker) AddMeal(ctx context.Context, meal models.Meal) models.Meal {
	if meal.ID == "" {
		meal.ID = t.newID()
	}
	if meal.Timestamp.IsZero() {
		meal.Timestamp = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist(ctx, storage.KeyMeals, t.meals.Append(meal))
	return meal
}

// RemoveMeal drops the meal with id. Unknown ids leave the log unchanged.
func (t *Tracker) RemoveMeal(ctx context.Context, id string) []models.Meal {
	t.mu.Lock()
	defer t.mu.Unlock()
	meals := t.meals.RemoveFunc(func(m models.Meal) bool { return m.ID == id })
	t.persist(ctx, storage.KeyMeals, meals)
	return meals
}

// --- Hydration ---

func (t *Tracker) AddWater(ctx context.Context, amountMl int) (models.WaterLog, error) {
	if amountMl <= 0 {
		return models.WaterLog{}, fmt.Errorf("%w: amount must be positive, got %d", models.ErrValidation, amountMl)
	}
	entry := models.WaterLog{ID: t.newID(), AmountMl: amountMl, Timestamp: t.now()}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist(ctx, storage.KeyWaterLogs, t.water.Append(entry))
	return entry, nil
}

// UndoWater removes the most recently appended water log, if any.
func (t *Tracker) UndoWater(ctx context.Context) []models.WaterLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	logs := t.water.RemoveLast()
	t.persist(ctx, storage.KeyWaterLogs, logs)
	return logs
}

// --- Support chat ---

// SendChat appends the user message, asks for a reply and appends exactly one
// model message. A failed or empty reply is replaced by a fixed fallback so the
// conversation always progresses.
func (t *Tracker) SendChat(ctx context.Context, text string) (ChatTurn, error) {
	if strings.TrimSpace(text) == "" {
		return ChatTurn{}, models.ErrEmptyInput
	}
	release, err := t.begin(models.ViewSupport)
	if err != nil {
		return ChatTurn{}, err
	}
	defer release()

	user := models.ChatMessage{ID: t.newID(), Role: models.RoleUser, Text: text, Timestamp: t.now()}
	t.mu.Lock()
	history := t.chat.Items()
	t.persist(ctx, storage.KeyChatMessages, t.chat.Append(user))
	t.mu.Unlock()

	turn := ChatTurn{User: user}
	reply, err := t.ai.Reply(ctx, history, text)
	switch {
	case err != nil:
		t.log.Warn().Err(err).Msg("chat reply failed")
		reply, turn.Degraded = models.ChatConnectionErrorText, true
	case strings.TrimSpace(reply) == "":
		reply, turn.Degraded = models.ChatEmptyReplyText, true
	}

	turn.Reply = models.ChatMessage{ID: t.newID(), Role: models.RoleModel, Text: reply, Timestamp: t.now()}
	t.mu.Lock()
	t.persist(ctx, storage.KeyChatMessages, t.chat.Append(turn.Reply))
	t.mu.Unlock()
	return turn, nil
}

// --- Journal ---

// PolishJournal returns the rewritten content, or content unchanged when the
// capability fails. Only empty input and concurrent use are errors.
func (t *Tracker) PolishJournal(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return content, models.ErrEmptyInput
	}
	release, err := t.begin(models.ViewJournal)
	if err != nil {
		return content, err
	}
	defer release()

	polished, err := t.ai.PolishJournal(ctx, content)
	if err != nil || strings.TrimSpace(polished) == "" {
		t.log.Warn().Err(err).Msg("journal polish failed, keeping original")
		return content, nil
	}
	return polished, nil
}

// GenerateJournalMetadata returns a generated title and tags. On failure it
// returns the fallback metadata and generated=false.
func (t *Tracker) GenerateJournalMetadata(ctx context.Context, content string) (meta models.JournalMetadata, generated bool, err error) {
	if strings.TrimSpace(content) == "" {
		return fallbackMetadata(), false, models.ErrEmptyInput
	}
	release, err := t.begin(models.ViewJournal)
	if err != nil {
		return fallbackMetadata(), false, err
	}
	defer release()

	meta, generated = t.journalMetadata(ctx, content)
	return meta, generated, nil
}

// SaveJournalEntry appends a journal entry for draft. Supplied metadata is
// used as is; otherwise, with AutoMetadata, it is generated first. Missing
// or failed metadata falls back to "Untitled Entry" and no tags.
func (t *Tracker) SaveJournalEntry(ctx context.Context, draft models.JournalDraft) (models.JournalEntry, error) {
	if strings.TrimSpace(draft.Content) == "" {
		return models.JournalEntry{}, models.ErrEmptyInput
	}
	release, err := t.begin(models.ViewJournal)
	if err != nil {
		return models.JournalEntry{}, err
	}
	defer release()

	meta := fallbackMetadata()
	switch {
	case draft.Metadata != nil:
		meta = *draft.Metadata
		meta.Normalize()
		if meta.Title == "" {
			meta.Title = models.UntitledEntry
		}
	case draft.AutoMetadata:
		meta, _ = t.journalMetadata(ctx, draft.Content)
	}

	entry := models.JournalEntry{
		ID:        t.newID(),
		Content:   draft.Content,
		Title:     meta.Title,
		Tags:      meta.Tags,
		Timestamp: t.now(),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist(ctx, storage.KeyJournalEntries, t.journal.Append(entry))
	return entry, nil
}

func (t *Tracker) journalMetadata(ctx context.Context, content string) (models.JournalMetadata, bool) {
	meta, err := t.ai.JournalMetadata(ctx, content)
	if err != nil || meta == nil {
		t.log.Warn().Err(err).Msg("journal metadata failed, using fallback")
		return fallbackMetadata(), false
	}
	out := *meta
	out.Normalize()
	if out.Title == "" {
		out.Title = models.UntitledEntry
	}
	return out, true
}

func fallbackMetadata() models.JournalMetadata {
	return models.JournalMetadata{Title: models.UntitledEntry, Tags: []string{}}
}

// --- internals ---

// persist writes a collection snapshot; callers hold t.mu so writes land in
// mutation order. Failures never reach the caller.
func (t *Tracker) persist(ctx context.Context, key string, items any) {
	if !storage.Save(context.WithoutCancel(ctx), t.store, key, items, t.log) {
		t.metrics.PersistFailed(key)
	}
}

func (t *Tracker) begin(view models.View) (func(), error) {
	if !t.inflight.acquire(view) {
		t.metrics.Busy(string(view))
		return nil, fmt.Errorf("%s: %w", view, models.ErrBusy)
	}
	return func() { t.inflight.release(view) }, nil
}

// inflight allows one outstanding capability call per originating view.
type inflight struct {
	mu   sync.Mutex
	busy map[models.View]bool
}

func (g *inflight) acquire(v models.View) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[v] {
		return false
	}
	g.busy[v] = true
	return true
}

func (g *inflight) release(v models.View) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, v)
}
