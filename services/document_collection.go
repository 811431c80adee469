package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"lead_flow_app_go/logger"
	"lead_flow_app_go/models"

	"gorm.io/gorm"
)

// FileRef is a stored file as exposed to clients
type FileRef struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
}

// DocumentGroup is the set of files sharing an owner and document type
type DocumentGroup struct {
	OwnerScope   string    `json:"owner_scope"`
	OwnerRef     string    `json:"owner_ref,omitempty"`
	DocumentType string    `json:"document_type"`
	Files        []FileRef `json:"files"`
}

// UploadTarget addresses a document group within a record
type UploadTarget struct {
	Scope        string
	OwnerRef     string // insured person id for health records, empty otherwise
	DocumentType string
}

// FileError reports a single failed file of a batch
type FileError struct {
	FileName string `json:"file_name"`
	Message  string `json:"message"`
}

// BatchResult is the outcome of a multi-file upload
type BatchResult struct {
	Uploaded []FileRef   `json:"uploaded"`
	Errors   []FileError `json:"errors,omitempty"`
}

// AddFile uploads one file and appends it to its document group. Nothing is
// appended when the upload fails. Returns the group's files after the append.
func AddFile(ctx context.Context, db *gorm.DB, record *models.VerificationRecord, target UploadTarget, file *multipart.FileHeader, actor Actor) ([]FileRef, error) {
	kind, err := checkTarget(db, actor, record, target)
	if err != nil {
		return nil, err
	}
	if _, err := storeDocument(ctx, db, record, target, file, kind, actor); err != nil {
		return nil, err
	}
	return ListByType(db, record.ID, target)
}

// AddFiles uploads files independently. Gate failures reject the whole batch;
// per-file failures are reported and do not undo files that already succeeded.
func AddFiles(ctx context.Context, db *gorm.DB, record *models.VerificationRecord, target UploadTarget, files []*multipart.FileHeader, actor Actor) (*BatchResult, error) {
	kind, err := checkTarget(db, actor, record, target)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, NewValidationError("at least one file is required", "files")
	}

	result := &BatchResult{Uploaded: []FileRef{}}
	for _, file := range files {
		ref, err := storeDocument(ctx, db, record, target, file, kind, actor)
		if err != nil {
			result.Errors = append(result.Errors, FileError{FileName: file.Filename, Message: clientMessage(err)})
			continue
		}
		result.Uploaded = append(result.Uploaded, *ref)
	}
	return result, nil
}

// ListByType returns the files of a document group, empty when never populated
func ListByType(db *gorm.DB, recordID string, target UploadTarget) ([]FileRef, error) {
	var docs []models.VerificationDocument
	err := db.Where("record_id = ? AND owner_scope = ? AND owner_ref = ? AND document_type = ?",
		recordID, target.Scope, target.OwnerRef, target.DocumentType).
		Order("created_at ASC, id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, &UpstreamError{Op: "list documents", Err: err}
	}

	files := make([]FileRef, 0, len(docs))
	for _, d := range docs {
		files = append(files, FileRef{URL: d.URL, FileName: d.FileName})
	}
	return files, nil
}

// Groups returns every document group of a record ordered by first upload
func Groups(db *gorm.DB, recordID string) ([]DocumentGroup, error) {
	var docs []models.VerificationDocument
	if err := db.Where("record_id = ?", recordID).Order("created_at ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, &UpstreamError{Op: "list documents", Err: err}
	}

	groups := []DocumentGroup{}
	index := map[UploadTarget]int{}
	for _, d := range docs {
		key := UploadTarget{Scope: d.OwnerScope, OwnerRef: d.OwnerRef, DocumentType: d.DocumentType}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DocumentGroup{
				OwnerScope:   d.OwnerScope,
				OwnerRef:     d.OwnerRef,
				DocumentType: d.DocumentType,
			})
		}
		groups[i].Files = append(groups[i].Files, FileRef{URL: d.URL, FileName: d.FileName})
	}
	return groups, nil
}

// DocumentCounts returns the number of files stored per record
func DocumentCounts(db *gorm.DB, recordIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(recordIDs))
	if len(recordIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RecordID string
		Total    int
	}
	err := db.Model(&models.VerificationDocument{}).
		Select("record_id, COUNT(*) AS total").
		Where("record_id IN ?", recordIDs).
		Group("record_id").
		Scan(&rows).Error
	if err != nil {
		return nil, &UpstreamError{Op: "count documents", Err: err}
	}
	for _, r := range rows {
		counts[r.RecordID] = r.Total
	}
	return counts, nil
}

func checkTarget(db *gorm.DB, actor Actor, record *models.VerificationRecord, target UploadTarget) (FileKind, error) {
	kind, err := CheckUpload(actor, record, target.Scope, target.DocumentType)
	if err != nil {
		return 0, err
	}
	if err := checkOwner(db, record, target); err != nil {
		return 0, err
	}
	return kind, nil
}

// checkOwner verifies that insured person documents point at a person of the record
func checkOwner(db *gorm.DB, record *models.VerificationRecord, target UploadTarget) error {
	if target.Scope != models.ScopeInsuredPerson {
		if target.OwnerRef != "" {
			return NewValidationError("owner reference is only used for insured persons", "owner_ref")
		}
		return nil
	}

	if target.OwnerRef == "" {
		return NewValidationError("insured person is required", "insured_person_id")
	}
	var count int64
	if err := db.Model(&models.InsuredPerson{}).
		Where("id = ? AND record_id = ?", target.OwnerRef, record.ID).
		Count(&count).Error; err != nil {
		return &UpstreamError{Op: "find insured person", Err: err}
	}
	if count == 0 {
		return fmt.Errorf("insured person %s: %w", target.OwnerRef, ErrNotFound)
	}
	return nil
}

func storeDocument(ctx context.Context, db *gorm.DB, record *models.VerificationRecord, target UploadTarget, file *multipart.FileHeader, kind FileKind, actor Actor) (*FileRef, error) {
	if err := ValidateUpload(file, kind); err != nil {
		return nil, err
	}
	if Storage == nil {
		return nil, &UpstreamError{Op: "upload", Err: fmt.Errorf("storage not initialized")}
	}

	category := target.Scope
	if target.OwnerRef != "" {
		category = target.Scope + "/" + target.OwnerRef
	}
	key := GenerateVerificationDocumentKey(record.LeadID, string(record.InsuranceType), category, target.DocumentType, file.Filename)

	uploadCtx, cancel := context.WithTimeout(ctx, StorageTimeout)
	defer cancel()

	stored, err := Storage.Upload(uploadCtx, file, key)
	if err != nil {
		logger.L.Error("document upload failed", "record_id", record.ID, "document_type", target.DocumentType, "error", err)
		return nil, &UpstreamError{Op: "upload", Err: err}
	}

	doc := models.VerificationDocument{
		RecordID:     record.ID,
		OwnerScope:   target.Scope,
		OwnerRef:     target.OwnerRef,
		DocumentType: target.DocumentType,
		URL:          stored.URL,
		FileName:     file.Filename,
		StorageKey:   stored.Key,
		FileSize:     stored.FileSize,
		MimeType:     stored.MimeType,
		UploadedByID: actor.ID,
	}
	if err := db.Create(&doc).Error; err != nil {
		if delErr := Storage.Delete(context.Background(), stored.Key); delErr != nil {
			logger.L.Warn("failed to remove orphaned upload", "key", stored.Key, "error", delErr)
		}
		return nil, &UpstreamError{Op: "save document", Err: err}
	}

	touchRecord(ctx, db, record.ID)
	LogAuditEvent(db, AuditContextFor(actor),
		models.AuditActionUpload, "VerificationRecord", record.ID, string(record.InsuranceType),
		fmt.Sprintf("%s uploaded (%s)", target.DocumentType, file.Filename), nil, nil)

	return &FileRef{URL: doc.URL, FileName: doc.FileName}, nil
}

// clientMessage hides upstream details from API consumers
func clientMessage(err error) string {
	if IsUpstreamError(err) {
		return "upload failed"
	}
	return err.Error()
}
