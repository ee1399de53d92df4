package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/nyashahama/bottled/internal/images"
)

// multipartOverhead is the slack allowed on top of images.MaxSize for the
// multipart boundaries and part headers.
const multipartOverhead = 64 << 10

// ─── POST /api/images ─────────────────────────────────────────────────────────

// handleUploadImage stores the multipart "image" field and returns its public
// URL. The type is sniffed from the bytes, never taken from the part header.
//
// 201 images.Image · 400 not an image / missing field · 413 over 2 MB
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		respondErr(w, http.StatusInternalServerError, "Image storage not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, images.MaxSize+multipartOverhead)
	part, err := imagePart(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondErr(w, http.StatusRequestEntityTooLarge, validationMessage(images.ErrTooLarge))
			return
		}
		respondErr(w, http.StatusBadRequest, "missing multipart field \"image\"")
		return
	}
	defer part.Close()

	img, err := s.images.Save(part)
	switch {
	case err == nil:
	case errors.Is(err, images.ErrTooLarge):
		respondErr(w, http.StatusRequestEntityTooLarge, validationMessage(err))
		return
	case errors.Is(err, images.ErrUnsupportedType):
		respondErr(w, http.StatusBadRequest, validationMessage(images.ErrUnsupportedType))
		return
	default:
		s.respondInternalErr(w, r, fmt.Errorf("save image: %w", err))
		return
	}

	s.logger.Info("image uploaded",
		"key", img.Key,
		"content_type", img.ContentType,
		"size", img.Size,
		logField(r),
	)
	respond(w, http.StatusCreated, img)
}

// imagePart streams the multipart body up to the "image" part. Other parts
// are skipped.
func imagePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		p, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, http.ErrMissingFile
			}
			return nil, err
		}
		if p.FormName() == "image" {
			return p, nil
		}
		p.Close()
	}
}
