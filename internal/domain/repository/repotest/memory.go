// Package repotest provides in-memory repositories that behave like the
// PostgreSQL ones closely enough for service and handler tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"notekeeper/internal/common"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/domain/repository"
)

// Store shares state between the user and note repositories so that
// deleting a user removes their notes.
type Store struct {
	mu     sync.Mutex
	users  map[int64]model.User
	notes  map[int64]model.Note
	nextU  int64
	nextN  int64
	now    func() time.Time
	FailOn map[string]error // method name -> error to return
}

func NewStore() *Store {
	return &Store{
		users:  map[int64]model.User{},
		notes:  map[int64]model.Note{},
		now:    time.Now,
		FailOn: map[string]error{},
	}
}

func (s *Store) Users() repository.UserRepository { return &users{s} }
func (s *Store) Notes() repository.NoteRepository { return &notes{s} }

func (s *Store) fail(method string) error {
	return s.FailOn[method]
}

// NoteCount is the number of stored notes.
func (s *Store) NoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Create"); err != nil {
		return err
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
	}
	u.Role = model.RoleUser
	if len(r.s.users) == 0 {
		u.Role = model.RoleAdmin
	}
	r.s.nextU++
	u.ID = r.s.nextU
	u.CreatedAt = r.s.now()
	r.s.users[u.ID] = *u
	return nil
}

func (r *users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *users) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (r *users) List(context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *users) SetOTP(_ context.Context, id int64, st model.OTPState) (*model.User, error) {
	if st.Verified && (!st.Enabled || st.Base32 == nil || *st.Base32 == "") {
		return nil, fmt.Errorf("otp cannot be verified without an enabled secret: %w", common.ErrValidation)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("SetOTP"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.OTPEnabled, u.OTPVerified = st.Enabled, st.Verified
	u.OTPBase32, u.OTPAuthURL = copyStr(st.Base32), copyStr(st.AuthURL)
	r.s.users[id] = u
	return &u, nil
}

func (r *users) MarkOTPVerified(_ context.Context, id int64, secret string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("MarkOTPVerified"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok || !u.OTPEnabled || u.OTPBase32 == nil || *u.OTPBase32 != secret {
		return nil, common.ErrNotFound
	}
	u.OTPVerified = true
	r.s.users[id] = u
	return &u, nil
}

func (r *users) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = hash
	r.s.users[id] = u
	return nil
}

func (r *users) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.users, id)
	for nid, n := range r.s.notes {
		if n.CreatedBy == id {
			delete(r.s.notes, nid)
		}
	}
	return nil
}

type notes struct{ s *Store }

func (r *notes) Create(_ context.Context, n *model.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateNote"); err != nil {
		return err
	}
	if _, ok := r.s.users[n.CreatedBy]; !ok {
		return fmt.Errorf("note owner %d does not exist", n.CreatedBy)
	}
	r.s.nextN++
	n.ID = r.s.nextN
	n.CreatedOn = r.s.now()
	n.UpdatedOn = n.CreatedOn
	r.s.notes[n.ID] = *n
	return nil
}

func (r *notes) FindByID(_ context.Context, id int64) (*model.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &n, nil
}

func (r *notes) ListByUser(_ context.Context, userID int64) ([]model.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Note{}
	for _, n := range r.s.notes {
		if n.CreatedBy == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *notes) List(_ context.Context, f model.NoteFilter) ([]model.Note, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ListNotes"); err != nil {
		return nil, 0, err
	}

	term := strings.ToLower(f.Search)
	matched := []model.Note{}
	for _, n := range r.s.notes {
		if term != "" && !strings.Contains(strings.ToLower(n.Title), term) && !strings.Contains(strings.ToLower(n.Content), term) {
			continue
		}
		if f.Active != nil && n.Active != *f.Active {
			continue
		}
		matched = append(matched, n)
	}

	compare := func(a, b model.Note) int {
		switch f.SortField {
		case "content":
			return strings.Compare(a.Content, b.Content)
		case "created_on":
			return a.CreatedOn.Compare(b.CreatedOn)
		default:
			return strings.Compare(a.Title, b.Title)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i], matched[j])
		if f.SortOrder == model.SortDesc {
			c = -c
		}
		if c == 0 {
			return matched[i].ID < matched[j].ID
		}
		return c < 0
	})

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *notes) Update(_ context.Context, n *model.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.notes[n.ID]
	if !ok || existing.CreatedBy != n.CreatedBy {
		return common.ErrNotFound
	}
	n.CreatedOn = existing.CreatedOn
	n.UpdatedOn = r.s.now()
	r.s.notes[n.ID] = *n
	return nil
}

func (r *notes) Delete(_ context.Context, id, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok || n.CreatedBy != userID {
		return common.ErrNotFound
	}
	delete(r.s.notes, id)
	return nil
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
