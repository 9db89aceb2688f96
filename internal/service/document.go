package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docgate/internal/document"
	"docgate/internal/logging"
	"docgate/internal/model"
	"docgate/internal/realtime"
	"docgate/internal/repository"
	"docgate/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("document not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrInvalidPath     = errors.New("invalid path")
	ErrTooLarge        = errors.New("document exceeds upload limit")
)

var tracer = otel.Tracer("docgate/internal/service")

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// Object is an opened document ready to be written to a client.
// Body is nil for metadata-only lookups; otherwise the caller must close it.
type Object struct {
	Name        string
	Body        io.ReadCloser
	Info        storage.ObjectInfo
	ContentType string
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Download opens a single document from the root of the document store.
	// filename must be one path segment; the content type comes from the fixed download table.
	Download(ctx context.Context, filename string) (*Object, error)

	// Static opens a document by its path within the document store. Nested paths are allowed.
	Static(ctx context.Context, p string) (*Object, error)

	// StaticInfo is Static without opening the content, for HEAD requests.
	StaticInfo(ctx context.Context, p string) (*Object, error)

	// Upload stores the content under a generated name, saves metadata, and rolls back storage if the
	// metadata save fails. originalName is kept for display and supplies the extension.
	Upload(ctx context.Context, r io.Reader, originalName string, size int64) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)
}

// Option configures a document service.
type Option func(*documentService)

// WithNotifier sets where upload events are published.
func WithNotifier(n realtime.Notifier) Option {
	return func(s *documentService) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used for failures that do not fail the request.
func WithLogger(l *logging.Logger) Option {
	return func(s *documentService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxUploadSize caps upload size in bytes. Zero or less disables the cap.
func WithMaxUploadSize(n int64) Option {
	return func(s *documentService) { s.maxUpload = n }
}

type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	notifier  realtime.Notifier
	log       *logging.Logger
	maxUpload int64
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...Option) DocumentService {
	s := &documentService{
		store:    store,
		repo:     repo,
		notifier: realtime.NopNotifier{},
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *documentService) Download(ctx context.Context, filename string) (*Object, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Download", trace.WithAttributes(attribute.String("document.name", filename)))
	defer span.End()

	if err := document.ValidateName(filename); err != nil {
		return nil, ErrInvalidFilename
	}
	rc, info, err := s.store.Get(ctx, filename)
	if err != nil {
		return nil, s.mapStoreErr(span, err, ErrInvalidFilename)
	}
	span.SetAttributes(attribute.Int64("document.size", info.Size))
	return &Object{Name: filename, Body: rc, Info: info, ContentType: document.ContentType(filename)}, nil
}

func (s *documentService) Static(ctx context.Context, p string) (*Object, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Static", trace.WithAttributes(attribute.String("document.path", p)))
	defer span.End()

	key, err := storage.CleanKey(p)
	if err != nil {
		return nil, ErrInvalidPath
	}
	rc, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, s.mapStoreErr(span, err, ErrInvalidPath)
	}
	return &Object{Name: key, Body: rc, Info: info, ContentType: document.InlineContentType(key)}, nil
}

func (s *documentService) StaticInfo(ctx context.Context, p string) (*Object, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.StaticInfo", trace.WithAttributes(attribute.String("document.path", p)))
	defer span.End()

	key, err := storage.CleanKey(p)
	if err != nil {
		return nil, ErrInvalidPath
	}
	info, err := s.store.Stat(ctx, key)
	if err != nil {
		return nil, s.mapStoreErr(span, err, ErrInvalidPath)
	}
	return &Object{Name: key, Info: info, ContentType: document.InlineContentType(key)}, nil
}

// mapStoreErr turns storage errors into service errors. Only unexpected
// failures are recorded on the span.
func (s *documentService) mapStoreErr(span trace.Span, err, invalid error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrInvalidKey):
		return invalid
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "storage read failed")
	return fmt.Errorf("open document: %w", err)
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalName string, size int64) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload", trace.WithAttributes(
		attribute.String("document.original_name", originalName),
		attribute.Int64("document.size", size),
	))
	defer span.End()

	if r == nil {
		return nil, ErrReaderNil
	}
	if s.maxUpload > 0 && size > s.maxUpload {
		return nil, ErrTooLarge
	}

	// Generate filename using UUID + extension; an extension that would not
	// survive as a download name is dropped.
	genName := uuid.New().String() + document.Ext(originalName)
	if document.ValidateName(genName) != nil {
		genName = uuid.New().String()
	}
	contentType := document.InlineContentType(genName)

	objInfo, err := s.store.Put(ctx, genName, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalName,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage write failed")
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:           uuid.New().String(),
		Filename:     genName,
		OriginalName: originalName,
		StoragePath:  objInfo.Key,
		Size:         objInfo.Size,
		ContentType:  contentType,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata save failed")
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, genName); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if err := s.notifier.Publish(ctx, realtime.NewEvent(realtime.EventDocumentUploaded, stored)); err != nil {
		s.log.Warn("publish upload event failed", logging.Fields{"document_id": stored.ID, "error": err})
	}
	return stored, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.List")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Get", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return doc, nil
}
