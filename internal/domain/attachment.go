package domain

import "time"

// MaxAttachmentSize is the upload limit in bytes (100 MiB), enforced
// before any bytes reach the blob store.
const MaxAttachmentSize = 100 * 1024 * 1024

// Attachment is metadata for a stored binary payload. The bytes
// themselves live in the blob store under ContentRef. Attachments are
// immutable once created; the only mutation is removal.
type Attachment struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"fileSize"`
	ContentRef string    `json:"-"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}
