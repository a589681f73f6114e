package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/domain"
)

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "cow.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600); err != nil {
		t.Fatal(err)
	}
	uri, err := loadImage(png)
	if err != nil {
		t.Fatalf("loadImage failed: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("unexpected data URI: %q", uri)
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("just text"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadImage(txt); err == nil {
		t.Fatal("expected error for non-image file")
	}
}

func TestRenderRequiresReply(t *testing.T) {
	if err := render(conversation.Exchange{}, domain.LanguageEnglish, 80); err == nil {
		t.Fatal("expected error without reply")
	}
}
