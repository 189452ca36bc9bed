package models

import (
	"encoding/json"
	"testing"
)

func TestParseAttachmentSlot(t *testing.T) {
	tests := []struct {
		raw     string
		want    AttachmentSlot
		wantErr bool
	}{
		{raw: "meta", want: AttachmentSlotMeta},
		{raw: "meta.json", want: AttachmentSlotMeta},
		{raw: " Summary ", want: AttachmentSlotSummary},
		{raw: "summary.txt", want: AttachmentSlotSummary},
		{raw: "data", want: AttachmentSlotData},
		{raw: "", wantErr: true},
		{raw: "message.json", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAttachmentSlot(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %s, got %s", tt.raw, tt.want, got)
		}
	}
	if AttachmentSlotSummary.Entry() != SummaryEntry {
		t.Fatalf("unexpected entry for summary: %s", AttachmentSlotSummary.Entry())
	}
}

func TestParseAttachmentSourceKindAliases(t *testing.T) {
	cases := map[string]AttachmentSourceKind{
		"file":       AttachmentSourceURL,
		"URL":        AttachmentSourceURL,
		"tauri":      AttachmentSourcePath,
		"local-path": AttachmentSourcePath,
		"saved-id":   AttachmentSourceNoteRef,
		"data":       AttachmentSourceDataURI,
	}
	for raw, want := range cases {
		got, err := ParseAttachmentSourceKind(raw)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("%q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := ParseAttachmentSourceKind("ftp"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestPayloadIdentity(t *testing.T) {
	if got := PayloadIdentity(json.RawMessage(`{"id":"m1","text":"hi"}`)); got != "m1" {
		t.Fatalf("expected m1, got %q", got)
	}
	if got := PayloadIdentity(json.RawMessage(`{"id":7}`)); got != "" {
		t.Fatalf("expected empty for numeric id, got %q", got)
	}
	if got := PayloadIdentity(json.RawMessage(`[1,2]`)); got != "" {
		t.Fatalf("expected empty for array payload, got %q", got)
	}
}
