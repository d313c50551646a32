package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/nlp/sentiment"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	// set to simulate database failures
	createErr error
	existsErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return apperror.Conflict("user", "username or email already exists")
		}
	}
	user.ID = "user-" + strconv.Itoa(f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// fakeHistoryRepo is an in-memory repository.HistoryRepository.
type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []model.ChatHistory
	addErr  error
}

func (f *fakeHistoryRepo) Add(_ context.Context, entry *model.ChatHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	entry.ID = "h-" + strconv.Itoa(len(f.entries)+1)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByUser(_ context.Context, userID string) ([]model.ChatHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ChatHistory{}
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// fakeModels implements every model interface the services consume.
type fakeModels struct {
	summary   string
	long      string
	keywords  []string
	topics    []string
	sentiment sentiment.Result
	err       error

	mu        sync.Mutex
	longCalls int
	texts     []string
}

func (f *fakeModels) record(text string) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}

func (f *fakeModels) Summarize(_ context.Context, text string) (string, error) {
	f.record(text)
	return f.summary, f.err
}

func (f *fakeModels) SummarizeLong(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.longCalls++
	f.mu.Unlock()
	return f.long, f.err
}

func (f *fakeModels) Extract(_ context.Context, text string) ([]string, error) {
	f.record(text)
	return f.keywords, f.err
}

func (f *fakeModels) Topics(_ context.Context, text string) ([]string, error) {
	f.record(text)
	return f.topics, f.err
}

func (f *fakeModels) Analyze(_ context.Context, text string) (sentiment.Result, error) {
	f.record(text)
	return f.sentiment, f.err
}
