package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"notekeeper/internal/app/service"
	"notekeeper/internal/common"

	"github.com/go-chi/chi/v5"
)

// multipart overhead allowed on top of the image itself
const formOverheadBytes = 1 << 20

type NoteHandler struct {
	noteService *service.NoteService
	maxUpload   int64
}

func NewNoteHandler(noteService *service.NoteService, maxUpload int64) *NoteHandler {
	return &NoteHandler{noteService: noteService, maxUpload: maxUpload}
}

// RegisterRoutes mounts the owner note routes under /secure/api.
func (h *NoteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/user/notes", h.listMine)
	r.Post("/user/note", h.create)
	r.Patch("/user/note/update/{note_id}", h.update)
	r.Delete("/user/note/delete/{note_id}", h.delete)
}

func (h *NoteHandler) listMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	notes, err := h.noteService.ListUserNotes(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	image, closeImage, err := formImage(r)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid image: "+err.Error())
		return
	}
	defer closeImage()

	note, err := h.noteService.CreateNote(r.Context(), claims.UserID, service.CreateNoteInput{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
		Image:   image,
	})
	if err != nil {
		respondNoteError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) update(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := service.UpdateNoteInput{
		Title:   formString(r, "title"),
		Content: formString(r, "content"),
	}
	if raw := formString(r, "active"); raw != nil {
		active, err := strconv.ParseBool(*raw)
		if err != nil {
			common.RespondWithError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		in.Active = &active
	}

	image, closeImage, err := formImage(r)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid image: "+err.Error())
		return
	}
	defer closeImage()
	in.Image = image

	note, err := h.noteService.UpdateNote(r.Context(), claims.UserID, noteID, in)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Note %d not found", noteID))
			return
		}
		respondNoteError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	noteID, ok := noteIDParam(w, r)
	if !ok {
		return
	}
	if err := h.noteService.DeleteNote(r.Context(), claims.UserID, noteID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Note %d not found", noteID))
			return
		}
		common.RespondWithServiceError(w, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, fmt.Sprintf("Deleted note %d", noteID))
}

func (h *NoteHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverheadBytes)
	if err := r.ParseMultipartForm(h.maxUpload + formOverheadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(w, http.StatusBadRequest, "File size too long")
			return false
		}
		common.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return false
	}
	return true
}

func respondNoteError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrImageUpload) {
		common.RespondWithError(w, http.StatusInternalServerError, service.ErrImageUpload.Error())
		return
	}
	common.RespondWithServiceError(w, err)
}

func noteIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "note_id"), 10, 64)
	if err != nil || id <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid note id")
		return 0, false
	}
	return id, true
}

func formString(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// formImage returns the optional "image" part and a func to release it.
func formImage(r *http.Request) (*service.Image, func(), error) {
	noop := func() {}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, err
	}
	return imageFromPart(file, header), func() { file.Close() }, nil
}

func imageFromPart(file multipart.File, header *multipart.FileHeader) *service.Image {
	return &service.Image{Filename: header.Filename, Size: header.Size, Body: file}
}
