package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"rail-booking/internal/rail"
)

var imageExt = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "train"
	}
	return out
}

// trainImagePath is uploads/trains/<slug>-<uuid><ext>, relative to the media root.
func trainImagePath(name, ext string) string {
	return path.Join("uploads", "trains", fmt.Sprintf("%s-%s%s", slugify(name), uuid.New(), ext))
}

var errNotImage = &rail.FieldError{
	Field:   "image",
	Message: "upload a valid image. The file you uploaded was either not an image or a corrupted image",
}

// readImage returns the payload and its extension, or errNotImage.
func readImage(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, "", errNotImage
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errNotImage
	}
	ext, ok := imageExt[format]
	if !ok {
		return nil, "", errNotImage
	}
	return data, ext, nil
}

func (s *Server) uploadTrainImage(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	train, err := s.store.GetTrain(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+(1<<20))
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, fieldBody("image", "file too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, fieldBody("image", "no file was submitted"))
		return
	}
	defer r.MultipartForm.RemoveAll()
	f, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldBody("image", "no file was submitted"))
		return
	}
	defer f.Close()

	data, ext, err := readImage(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if int64(len(data)) > s.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, fieldBody("image", "file too large"))
		return
	}

	rel := trainImagePath(train.Name, ext)
	dst := filepath.Join(s.mediaRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		writeError(w, r, fmt.Errorf("create upload dir: %w", err))
		return
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		writeError(w, r, fmt.Errorf("write image: %w", err))
		return
	}

	updated, err := s.store.SetTrainImage(r.Context(), id, rel)
	if err != nil {
		_ = os.Remove(dst)
		writeError(w, r, err)
		return
	}
	if train.Image != "" && train.Image != rel {
		if err := os.Remove(filepath.Join(s.mediaRoot, filepath.FromSlash(train.Image))); err != nil && !os.IsNotExist(err) {
			log.Printf("remove old image for train %d: %v", id, err)
		}
	}
	writeJSON(w, http.StatusOK, trainImageView{ID: updated.ID, Image: mediaURL(updated.Image)})
}
