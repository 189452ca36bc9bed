package models

import (
	"fmt"
	"strings"
)

// AttachmentSlot names one of the three slots of an attachment container.
type AttachmentSlot string

const (
	AttachmentSlotMeta    AttachmentSlot = "meta"
	AttachmentSlotSummary AttachmentSlot = "summary"
	AttachmentSlotData    AttachmentSlot = "data"
)

// Container entry names backing each slot.
const (
	MessageEntry = "message.json"
	MetaEntry    = "meta.json"
	SummaryEntry = "summary.txt"
	DataEntry    = "data"
)

var attachmentSlotEntries = map[AttachmentSlot]string{
	AttachmentSlotMeta:    MetaEntry,
	AttachmentSlotSummary: SummaryEntry,
	AttachmentSlotData:    DataEntry,
}

// Entry returns the container entry name for the slot.
func (s AttachmentSlot) Entry() string {
	return attachmentSlotEntries[s]
}

// ParseAttachmentSlot accepts either the slot name or its entry name.
func ParseAttachmentSlot(raw string) (AttachmentSlot, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("attachment slot is required")
	}
	for slot, entry := range attachmentSlotEntries {
		if value == string(slot) || value == entry {
			return slot, nil
		}
	}
	return "", fmt.Errorf("invalid attachment slot: %s", value)
}

// AttachmentSourceKind describes where attachment bytes come from.
type AttachmentSourceKind string

const (
	AttachmentSourceURL     AttachmentSourceKind = "url"
	AttachmentSourceDataURI AttachmentSourceKind = "data"
	AttachmentSourcePath    AttachmentSourceKind = "path"
	AttachmentSourceNoteRef AttachmentSourceKind = "ref"
)

// Older clients name the same sources differently.
var attachmentSourceAliases = map[string]AttachmentSourceKind{
	"url":        AttachmentSourceURL,
	"file":       AttachmentSourceURL,
	"data":       AttachmentSourceDataURI,
	"data-uri":   AttachmentSourceDataURI,
	"path":       AttachmentSourcePath,
	"tauri":      AttachmentSourcePath,
	"local-path": AttachmentSourcePath,
	"ref":        AttachmentSourceNoteRef,
	"saved-id":   AttachmentSourceNoteRef,
}

func ParseAttachmentSourceKind(raw string) (AttachmentSourceKind, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("attachment source kind is required")
	}
	kind, ok := attachmentSourceAliases[value]
	if !ok {
		return "", fmt.Errorf("invalid attachment source kind: %s", value)
	}
	return kind, nil
}

// AttachmentMeta is the JSON body of the meta slot.
type AttachmentMeta struct {
	MediaType string `json:"media_type"`
	Filename  string `json:"filename"`
}

// Attachment is one save request for an attachment container. Summary and
// Data are optional; a nil value leaves the slot untouched.
type Attachment struct {
	ConversationID string
	AttachmentID   string
	MediaType      string
	Filename       string
	Summary        *string
	Data           []byte
}
