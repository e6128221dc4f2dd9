package filehost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func source(name, body string) Source {
	return Source{
		Name:        name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

// flakyBackend fails Put for bad.pdf
type flakyBackend struct {
	*MockBackend
	inFlight, peak int32
}

func (f *flakyBackend) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if strings.HasSuffix(key, "-bad.pdf") {
		return errors.New("connection reset")
	}
	return f.MockBackend.Put(ctx, key, contentType, body, size)
}

func TestHost_UploadAllIsolatesFailures(t *testing.T) {
	backend := &flakyBackend{MockBackend: NewMockBackend("https://files.example.com")}
	host := NewHost(backend, Options{MaxConcurrency: 2, MaxFileSize: 1024}, nil)

	files := []Source{
		source("receipt.pdf", "a"),
		source("bad.pdf", "b"),
		source("lab results.pdf", "c"),
		source("huge.pdf", strings.Repeat("x", 2048)),
		source("scan.png", "d"),
	}
	uploaded, failed := host.UploadAll(context.Background(), "patient-1", files)

	if len(uploaded) != 3 {
		t.Fatalf("expected 3 uploads, got %d", len(uploaded))
	}
	wantOrder := []string{"receipt.pdf", "lab results.pdf", "scan.png"}
	for i, u := range uploaded {
		if u.OriginalName != wantOrder[i] {
			t.Errorf("uploaded[%d] = %q, want %q", i, u.OriginalName, wantOrder[i])
		}
		if !strings.HasPrefix(u.URL, "https://files.example.com/claims/patient-1/") {
			t.Errorf("unexpected url %q", u.URL)
		}
	}

	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failed))
	}
	if failed[0].Name != "bad.pdf" || failed[1].Name != "huge.pdf" {
		t.Errorf("unexpected failures: %+v", failed)
	}
	if !errors.Is(failed[1].Err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", failed[1].Err)
	}
	if peak := atomic.LoadInt32(&backend.peak); peak > 2 {
		t.Errorf("concurrency limit exceeded: %d", peak)
	}
}

func TestHost_AllowedExtensions(t *testing.T) {
	host := NewHost(NewMockBackend(""), Options{AllowedExtensions: []string{".pdf", ".png"}}, nil)
	uploaded, failed := host.UploadAll(context.Background(), "p1", []Source{
		source("Receipt.PDF", "a"),
		source("script.sh", "b"),
	})
	if len(uploaded) != 1 || uploaded[0].OriginalName != "Receipt.PDF" {
		t.Errorf("unexpected uploads: %+v", uploaded)
	}
	if len(failed) != 1 || !errors.Is(failed[0].Err, ErrUnsupportedType) {
		t.Errorf("unexpected failures: %+v", failed)
	}
}

func TestFailure_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Failure{Name: `a"b.pdf`, Err: errors.New("timeout")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["name"] != `a"b.pdf` || got["error"] != "timeout" {
		t.Errorf("unexpected json %s", b)
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
	}{
		{"receipt.pdf", "-receipt.pdf"},
		{"../../etc/passwd", "-passwd"},
		{`C:\Users\me\scan 1.png`, "-scan_1.png"},
		{"   ", "-document"},
	}
	for _, tt := range tests {
		key := ObjectKey("p1", tt.name)
		if !strings.HasPrefix(key, "claims/p1/") || !strings.HasSuffix(key, tt.suffix) {
			t.Errorf("ObjectKey(%q) = %q, want suffix %q", tt.name, key, tt.suffix)
		}
	}
}

type fakePresigner struct {
	err error
}

func (f fakePresigner) PresignPutObject(_ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &v4.PresignedHTTPRequest{
		URL:    "https://bucket.s3.amazonaws.com/" + *in.Key + "?X-Amz-Expires=" + opts.Expires.String(),
		Method: "PUT",
	}, nil
}

type fakePutter struct {
	got *s3.PutObjectInput
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.got = in
	return &s3.PutObjectOutput{}, nil
}

func TestS3Backend(t *testing.T) {
	putter := &fakePutter{}
	backend := NewS3BackendFromClients(putter, fakePresigner{}, S3Config{Bucket: "claims-docs", Region: "us-east-1"})

	if err := backend.Put(context.Background(), "claims/p1/x-a b.pdf", "application/pdf", strings.NewReader("abc"), 3); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if *putter.got.Bucket != "claims-docs" || *putter.got.ContentLength != 3 {
		t.Errorf("unexpected input: %+v", putter.got)
	}
	if got := backend.URL("claims/p1/x-a b.pdf"); got != "https://claims-docs.s3.us-east-1.amazonaws.com/claims/p1/x-a%20b.pdf" {
		t.Errorf("URL = %q", got)
	}

	host := NewHost(backend, Options{PresignTTL: time.Minute}, nil)
	uploads, failed := host.Presign(context.Background(), "p1", []PresignRequest{
		{Name: "a.pdf", ContentType: "application/pdf"},
		{Name: ""},
	})
	if len(uploads) != 1 || len(failed) != 1 {
		t.Fatalf("uploads=%d failed=%d", len(uploads), len(failed))
	}
	if uploads[0].Method != "PUT" || uploads[0].ExpiresIn != 60 || !strings.Contains(uploads[0].UploadURL, "X-Amz-Expires=1m0s") {
		t.Errorf("unexpected presigned upload: %+v", uploads[0])
	}

	broken := NewHost(NewS3BackendFromClients(putter, fakePresigner{err: errors.New("denied")}, S3Config{Bucket: "b", Region: "r"}), Options{}, nil)
	if _, failed := broken.Presign(context.Background(), "p1", []PresignRequest{{Name: "a.pdf"}}); len(failed) != 1 {
		t.Errorf("expected presign failure to be recorded")
	}
}
