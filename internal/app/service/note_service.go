package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"notekeeper/internal/app/worker"
	"notekeeper/internal/common"
	"notekeeper/internal/domain/model"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/platform/media"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	DefaultNoteLimit = 10
	MaxNoteLimit     = 100

	// Largest OFFSET a listing may reach.
	maxNoteOffset = math.MaxInt32
)

var ErrImageUpload = errors.New("Failed to upload image")

type NoteService struct {
	noteRepo  repository.NoteRepository
	pool      *worker.Pool
	uploader  media.Uploader
	maxUpload int64
	log       *zap.Logger
}

func NewNoteService(noteRepo repository.NoteRepository, pool *worker.Pool, uploader media.Uploader, maxUpload int64, log *zap.Logger) *NoteService {
	return &NoteService{noteRepo: noteRepo, pool: pool, uploader: uploader, maxUpload: maxUpload, log: log}
}

// ListNotesQuery carries the raw admin listing parameters.
type ListNotesQuery struct {
	Search       string
	SortField    string
	SortOrder    string
	ActiveStatus string
	Limit        int
	Page         int
}

// Image is an attachment received with a note.
type Image struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type CreateNoteInput struct {
	Title   string
	Content string
	Image   *Image
}

// UpdateNoteInput holds a partial update; nil fields keep their value,
// except Active which defaults to true when absent.
type UpdateNoteInput struct {
	Title   *string
	Content *string
	Active  *bool
	Image   *Image
}

func (q ListNotesQuery) filter() model.NoteFilter {
	f := model.NoteFilter{
		Search:    strings.TrimSpace(q.Search),
		SortField: q.SortField,
		SortOrder: model.SortAsc,
		Limit:     q.Limit,
		Page:      q.Page,
	}
	if strings.EqualFold(q.SortOrder, string(model.SortDesc)) {
		f.SortOrder = model.SortDesc
	}
	switch q.ActiveStatus {
	case "active":
		v := true
		f.Active = &v
	case "inactive":
		v := false
		f.Active = &v
	}
	if f.Limit <= 0 {
		f.Limit = DefaultNoteLimit
	}
	if f.Limit > MaxNoteLimit {
		f.Limit = MaxNoteLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if lastPage := maxNoteOffset/f.Limit + 1; f.Page > lastPage {
		f.Page = lastPage
	}
	return f
}

func (s *NoteService) ListNotes(ctx context.Context, q ListNotesQuery) (*model.NotePage, error) {
	f := q.filter()

	type listing struct {
		notes []model.Note
		total int
	}
	res, err := worker.Run(ctx, s.pool, func(ctx context.Context) (listing, error) {
		notes, total, err := s.noteRepo.List(ctx, f)
		return listing{notes: notes, total: total}, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	return &model.NotePage{
		TotalNotes:   res.total,
		NumberOfPage: int(math.Ceil(float64(res.total) / float64(f.Limit))),
		Page:         f.Page,
		Notes:        res.notes,
	}, nil
}

func (s *NoteService) ListUserNotes(ctx context.Context, userID int64) ([]model.Note, error) {
	return worker.Run(ctx, s.pool, func(ctx context.Context) ([]model.Note, error) {
		return s.noteRepo.ListByUser(ctx, userID)
	})
}

func (s *NoteService) CreateNote(ctx context.Context, userID int64, in CreateNoteInput) (*model.Note, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", common.ErrValidation)
	}

	imageURL, err := s.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	note := &model.Note{
		Title:     title,
		Slug:      slug.Make(title),
		Content:   in.Content,
		ImageURL:  imageURL,
		Active:    true,
		CreatedBy: userID,
	}
	err = worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.noteRepo.Create(ctx, note)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

// UpdateNote only touches notes owned by userID; anything else is not found.
func (s *NoteService) UpdateNote(ctx context.Context, userID, noteID int64, in UpdateNoteInput) (*model.Note, error) {
	note, err := worker.Run(ctx, s.pool, func(ctx context.Context) (*model.Note, error) {
		return s.noteRepo.FindByID(ctx, noteID)
	})
	if err != nil {
		return nil, err
	}
	if note.CreatedBy != userID {
		return nil, common.ErrNotFound
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", common.ErrValidation)
		}
		note.Title = title
		note.Slug = slug.Make(title)
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	note.Active = true
	if in.Active != nil {
		note.Active = *in.Active
	}

	if in.Image != nil {
		url, err := s.upload(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		note.ImageURL = url
	}

	err = worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.noteRepo.Update(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID int64) error {
	return worker.Do(ctx, s.pool, func(ctx context.Context) error {
		return s.noteRepo.Delete(ctx, noteID, userID)
	})
}

func (s *NoteService) upload(ctx context.Context, img *Image) (*string, error) {
	if img == nil {
		return nil, nil
	}
	if err := media.ValidateImage(img.Filename, img.Size, s.maxUpload); err != nil {
		return nil, err
	}
	url, err := s.uploader.Upload(ctx, img.Filename, img.Body)
	if err != nil {
		s.log.Error("image upload failed", zap.String("file", img.Filename), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrImageUpload, err)
	}
	return &url, nil
}
