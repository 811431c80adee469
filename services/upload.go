package services

import (
	"fmt"
	"mime"
	"mime/multipart"
	"strings"

	"lead_flow_app_go/logger"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MaxDocumentSize = 10 * 1024 * 1024  // 10MB for images and PDFs
	MaxMediaSize    = 100 * 1024 * 1024 // 100MB for audio and video
)

// FileKind describes which files an upload slot accepts
type FileKind int

const (
	// KindImageOrPDF accepts images and PDFs up to 10MB
	KindImageOrPDF FileKind = iota
	// KindImage accepts images up to 10MB
	KindImage
	// KindMedia accepts audio and video up to 100MB
	KindMedia
)

func (k FileKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindMedia:
		return "audio or video"
	default:
		return "image or PDF"
	}
}

// MaxSize returns the size limit for the kind
func (k FileKind) MaxSize() int64 {
	if k == KindMedia {
		return MaxMediaSize
	}
	return MaxDocumentSize
}

// Accepts reports whether the content type belongs to the kind
func (k FileKind) Accepts(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch k {
	case KindImage:
		return strings.HasPrefix(ct, "image/")
	case KindMedia:
		return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/")
	default:
		return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
	}
}

// DetectContentType sniffs the head of the file. The declared part header
// and the file name are ignored.
func DetectContentType(file *multipart.FileHeader) string {
	src, err := file.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

// ValidateUpload checks the size and type of a file before any storage call
func ValidateUpload(file *multipart.FileHeader, kind FileKind) error {
	if file == nil {
		return NewValidationError("file is required", "file")
	}
	if file.Size <= 0 {
		return NewValidationError("file is empty", "file")
	}
	if file.Size > kind.MaxSize() {
		return NewValidationError(fmt.Sprintf("%s exceeds maximum allowed size of %dMB", file.Filename, kind.MaxSize()/(1024*1024)), "file")
	}
	if detected := DetectContentType(file); !kind.Accepts(detected) {
		logger.L.Warn("upload rejected by content check", "file", file.Filename, "declared", file.Header.Get("Content-Type"), "detected", detected)
		return NewValidationError(fmt.Sprintf("%s is not an accepted file type, expected %s", file.Filename, kind), "file")
	}
	return nil
}
