package proof

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ideapool/go-ideas-backend/internal/apperr"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func TestValidate_AcceptsImageAndPDF(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		meta Metadata
	}{
		{"png sniffed", pngBytes, Metadata{Filename: "receipt.png"}},
		{"png declared", pngBytes, Metadata{ContentType: "image/png"}},
		{"pdf", []byte("%PDF-1.4 receipt"), Metadata{ContentType: "application/pdf"}},
		{"jpeg with params", []byte("\xff\xd8\xff\xe0 data"), Metadata{ContentType: "image/jpeg; charset=binary"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.data, tc.meta); err != nil {
				t.Fatalf("Validate() = %v; want nil", err)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		meta Metadata
	}{
		{"empty", nil, Metadata{ContentType: "image/png"}},
		{"oversized", make([]byte, MaxSize+1), Metadata{ContentType: "image/png"}},
		{"executable", []byte("MZ\x90\x00 not a receipt"), Metadata{ContentType: "application/x-msdownload"}},
		{"text", []byte("hello"), Metadata{ContentType: "text/plain"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.data, tc.meta)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("Validate() = %v; want validation error", err)
			}
		})
	}
}

func TestValidate_DeclaredTypeMustMatchContent(t *testing.T) {
	// HTML bytes declared as an image: the sniffed type gives it away.
	err := Validate([]byte("<html><body>fake</body></html>"), Metadata{ContentType: "image/png"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("mislabeled artifact accepted: %v", err)
	}
}

func TestMemoryStore_UploadAndGet(t *testing.T) {
	s := NewMemoryStore("https://cdn.example.com/")
	art, err := s.Upload(context.Background(), pngBytes, Metadata{Filename: "proof.PNG"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if art.Ref == "" {
		t.Fatalf("empty artifact ref")
	}
	if !strings.HasSuffix(art.Ref, ".png") {
		t.Fatalf("ref %q lost its extension", art.Ref)
	}
	if !strings.HasPrefix(art.URL, "https://cdn.example.com/proofs/") {
		t.Fatalf("unexpected URL %q", art.URL)
	}

	got, ok := s.Get(art.Ref)
	if !ok || !bytes.Equal(got, pngBytes) {
		t.Fatalf("stored bytes differ")
	}
}

func TestMemoryStore_UploadRejectsBeforeStoring(t *testing.T) {
	s := NewMemoryStore("http://localhost")
	if _, err := s.Upload(context.Background(), make([]byte, MaxSize+1), Metadata{ContentType: "image/png"}); err == nil {
		t.Fatalf("oversized upload accepted")
	}
	if len(s.blobs) != 0 {
		t.Fatalf("rejected upload left a blob behind")
	}
}
