// Package filehost pushes claim documents to external object storage and hands
// back the URLs that get persisted on a claim.
package filehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTooLarge is recorded for a file over the configured size limit
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// ErrEmptyName is recorded for a file without a name
var ErrEmptyName = errors.New("file name is required")

// ErrUnsupportedType is recorded for a file whose extension is not allowed
var ErrUnsupportedType = errors.New("file type is not allowed")

// Backend is the object store. S3Backend and MockBackend implement it.
type Backend interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	URL(key string) string
}

// Source is one file waiting to be uploaded
type Source struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Uploaded describes a stored file
type Uploaded struct {
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Failure describes a file that could not be stored
type Failure struct {
	Name string `json:"name"`
	Err  error  `json:"-"`
}

// MarshalJSON exposes the error text
func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Name  string `json:"name"`
		Error string `json:"error"`
	}{f.Name, msg})
}

// PresignRequest asks for a direct upload URL for one file
type PresignRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// PresignedUpload is a URL the browser can PUT one file to
type PresignedUpload struct {
	Name        string            `json:"name"`
	Key         string            `json:"key"`
	UploadURL   string            `json:"uploadUrl"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	URL         string            `json:"url"`
	ExpiresIn   int               `json:"expiresIn"`
	ContentType string            `json:"contentType"`
}

// Options tune a Host. AllowedExtensions are lower-case with the leading
// dot; an empty list allows every file type.
type Options struct {
	UploadTimeout     time.Duration
	PresignTTL        time.Duration
	MaxConcurrency    int
	MaxFileSize       int64
	AllowedExtensions []string
}

// Host uploads batches of files with bounded concurrency
type Host struct {
	backend Backend
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
}

// NewHost creates a Host over backend
func NewHost(backend Backend, opts Options, logger *zap.Logger) *Host {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 20 * time.Second
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{backend: backend, opts: opts, logger: logger, now: time.Now}
}

// UploadAll stores every file under owner's prefix. Each file runs under its
// own timeout and a failure is recorded without cancelling its siblings.
// Successful uploads keep the input order.
func (h *Host) UploadAll(ctx context.Context, owner string, files []Source) ([]Uploaded, []Failure) {
	results := make([]*Uploaded, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(h.opts.MaxConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i], errs[i] = h.upload(ctx, owner, f)
			return nil
		})
	}
	_ = g.Wait()

	uploaded := make([]Uploaded, 0, len(files))
	failed := []Failure{}
	for i, f := range files {
		if errs[i] != nil {
			h.logger.Warn("document upload failed",
				zap.String("owner", owner),
				zap.String("file", f.Name),
				zap.Error(errs[i]))
			failed = append(failed, Failure{Name: f.Name, Err: errs[i]})
			continue
		}
		uploaded = append(uploaded, *results[i])
	}
	return uploaded, failed
}

// check rejects a file name before any network call
func (h *Host) check(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(h.opts.AllowedExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(path.Ext(name))
	for _, allowed := range h.opts.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrUnsupportedType
}

func (h *Host) upload(ctx context.Context, owner string, f Source) (*Uploaded, error) {
	if err := h.check(f.Name); err != nil {
		return nil, err
	}
	if h.opts.MaxFileSize > 0 && f.Size > h.opts.MaxFileSize {
		return nil, ErrTooLarge
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.UploadTimeout)
	defer cancel()

	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()

	key := ObjectKey(owner, f.Name)
	if err := h.backend.Put(ctx, key, f.ContentType, body, f.Size); err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}
	return &Uploaded{
		URL:          h.backend.URL(key),
		OriginalName: f.Name,
		ContentType:  f.ContentType,
		UploadedAt:   h.now().UTC(),
	}, nil
}

// Presign returns a direct upload URL per request. Bad entries are reported
// in the failure list.
func (h *Host) Presign(ctx context.Context, owner string, reqs []PresignRequest) ([]PresignedUpload, []Failure) {
	uploads := make([]PresignedUpload, 0, len(reqs))
	failed := []Failure{}
	for _, r := range reqs {
		if err := h.check(r.Name); err != nil {
			failed = append(failed, Failure{Name: r.Name, Err: err})
			continue
		}
		contentType := r.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key := ObjectKey(owner, r.Name)
		url, err := h.backend.PresignPut(ctx, key, contentType, h.opts.PresignTTL)
		if err != nil {
			h.logger.Warn("presign failed", zap.String("owner", owner), zap.String("file", r.Name), zap.Error(err))
			failed = append(failed, Failure{Name: r.Name, Err: err})
			continue
		}
		uploads = append(uploads, PresignedUpload{
			Name:        r.Name,
			Key:         key,
			UploadURL:   url,
			Method:      "PUT",
			Headers:     map[string]string{"Content-Type": contentType},
			URL:         h.backend.URL(key),
			ExpiresIn:   int(h.opts.PresignTTL.Seconds()),
			ContentType: contentType,
		})
	}
	return uploads, failed
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds claims/<owner>/<uuid>-<sanitised name>
func ObjectKey(owner, name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "document"
	}
	return fmt.Sprintf("claims/%s/%s-%s", owner, uuid.NewString(), base)
}
