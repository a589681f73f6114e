package datauri

import (
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantOK   bool
		wantMIME string
		wantData string
	}{
		{"png", "data:image/png;base64,AAAA", true, "image/png", "AAAA"},
		{"jpeg", "data:image/jpeg;base64,/9j/4AAQ", true, "image/jpeg", "/9j/4AAQ"},
		{"missing base64 marker", "data:image/png,AAAA", false, "", ""},
		{"empty payload", "data:image/png;base64,", false, "", ""},
		{"plain url", "https://example.com/cow.jpg", false, "", ""},
		{"empty", "", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, ok := Decode(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("Decode(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if img.MIMEType != tt.wantMIME || img.Payload != tt.wantData {
				t.Errorf("Decode(%q) = %+v", tt.in, img)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	uri := Encode("", raw)

	img, ok := Decode(uri)
	if !ok {
		t.Fatalf("expected encoded uri to decode: %q", uri)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("Expected sniffed image/png, got %q", img.MIMEType)
	}
	got, err := img.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("payload mismatch")
	}
}

func TestEncodeStripsParameters(t *testing.T) {
	uri := Encode("image/jpeg; charset=binary", []byte("x"))
	if uri != "data:image/jpeg;base64,eA==" {
		t.Errorf("unexpected uri %q", uri)
	}
}

func TestBytesInvalidPayload(t *testing.T) {
	img := Image{MIMEType: "image/png", Payload: "!!not base64!!"}
	if _, err := img.Bytes(); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestIsImageURI(t *testing.T) {
	tests := map[string]bool{
		"data:image/webp;base64,UklGRg==": true,
		"data:text/plain;base64,aGk=":     false,
		"data:image/png,AAAA":             false,
		"":                                false,
	}
	for in, want := range tests {
		if got := IsImageURI(in); got != want {
			t.Errorf("IsImageURI(%q) = %v, want %v", in, got, want)
		}
	}
}
