package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/phonoecho/internal/domain/model"
	"github.com/okian/phonoecho/pkg/logger"
)

const defaultBcryptCost = 12

// userRecord is the users_info.json value for one user.
type userRecord struct {
	Password string   `json:"password"`
	History  []string `json:"history"`
}

// FileRepository is the file-backed store of users and practice history.
type FileRepository struct {
	layout     Layout
	bcryptCost int
	now        func() time.Time
	log        logger.Logger

	// usersMu guards users_info.json.
	usersMu sync.Mutex
	// historyMu serializes read-modify-write of each user's score files.
	historyMu sync.Map // user -> *sync.Mutex
}

// NewFileRepository creates a repository rooted at dataDir.
func NewFileRepository(dataDir string, opts ...Option) *FileRepository {
	r := &FileRepository{
		layout:     Layout{Root: dataDir},
		bcryptCost: defaultBcryptCost,
		now:        time.Now,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Layout returns the path resolver.
func (r *FileRepository) Layout() Layout { return r.layout }

func (r *FileRepository) loadUsers() (map[string]userRecord, error) {
	users := map[string]userRecord{}
	if _, err := readJSON(r.layout.UsersFile(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *FileRepository) saveUsers(users map[string]userRecord) error {
	return writeJSON(r.layout.UsersFile(), users)
}

func toUser(name string, rec userRecord) model.User {
	h := rec.History
	if h == nil {
		h = []string{}
	}
	return model.User{Name: name, PasswordHash: rec.Password, History: append([]string{}, h...)}
}

// Register creates a user with a bcrypt-hashed password and its practice tree.
func (r *FileRepository) Register(ctx context.Context, name, password string) (model.User, error) {
	if !validName(name) {
		return model.User{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	hash, err := r.hash(password)
	if err != nil {
		return model.User{}, err
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	users, err := r.loadUsers()
	if err != nil {
		return model.User{}, err
	}
	if _, ok := users[name]; ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserExists, name)
	}
	if err := r.ensureUserDirs(name); err != nil {
		return model.User{}, err
	}
	rec := userRecord{Password: hash, History: []string{}}
	users[name] = rec
	if err := r.saveUsers(users); err != nil {
		return model.User{}, err
	}
	r.log.Info(ctx, "user registered", logger.String("user", name))
	return toUser(name, rec), nil
}

// Authenticate checks the password of an existing user and makes sure the
// practice directory of today exists.
func (r *FileRepository) Authenticate(ctx context.Context, name, password string) (model.User, error) {
	r.usersMu.Lock()
	users, err := r.loadUsers()
	r.usersMu.Unlock()
	if err != nil {
		return model.User{}, err
	}
	rec, ok := users[name]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.User{}, ErrWrongPassword
		}
		return model.User{}, fmt.Errorf("%w: %s: %w", ErrCorruptFile, name, err)
	}
	if err := r.ensureUserDirs(name); err != nil {
		return model.User{}, err
	}
	r.log.Debug(ctx, "user authenticated", logger.String("user", name))
	return toUser(name, rec), nil
}

// ResetPassword replaces the password hash of an existing user.
func (r *FileRepository) ResetPassword(ctx context.Context, name, password string) error {
	hash, err := r.hash(password)
	if err != nil {
		return err
	}
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return err
	}
	rec, ok := users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	rec.Password = hash
	users[name] = rec
	if err := r.saveUsers(users); err != nil {
		return err
	}
	r.log.Info(ctx, "password reset", logger.String("user", name))
	return nil
}

// GetUser returns a user without checking credentials.
func (r *FileRepository) GetUser(_ context.Context, name string) (model.User, error) {
	r.usersMu.Lock()
	users, err := r.loadUsers()
	r.usersMu.Unlock()
	if err != nil {
		return model.User{}, err
	}
	rec, ok := users[name]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	return toUser(name, rec), nil
}

// ListUsers returns all user names, sorted.
func (r *FileRepository) ListUsers(_ context.Context) ([]string, error) {
	r.usersMu.Lock()
	users, err := r.loadUsers()
	r.usersMu.Unlock()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for n := range users {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// AppendHistory records that the user practiced entry. An entry already
// present is not repeated.
func (r *FileRepository) AppendHistory(_ context.Context, name, entry string) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	users, err := r.loadUsers()
	if err != nil {
		return err
	}
	rec, ok := users[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	for _, h := range rec.History {
		if h == entry {
			return nil
		}
	}
	rec.History = append(rec.History, entry)
	users[name] = rec
	return r.saveUsers(users)
}

func (r *FileRepository) hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), r.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}
	return string(h), nil
}

// ensureUserDirs creates the practice directory of today. Existing
// directories are fine.
func (r *FileRepository) ensureUserDirs(name string) error {
	if err := os.MkdirAll(r.layout.DayDir(name, r.now()), dirPerm); err != nil {
		return fmt.Errorf("create practice dir for %s: %w", name, err)
	}
	return nil
}
