package models

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	StatusComplete   = "complete"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

var (
	ErrMissingID      = errors.New("document id is required")
	ErrMissingOwnerID = errors.New("document owner id is required")
	ErrMissingName    = errors.New("document display name is required")
)

// DocumentAnalysis holds the extraction output attached to a document. All
// fields are optional; SearchableText, when present, is the pre-flattened
// form of StructuredData and is preferred by the ranker.
type DocumentAnalysis struct {
	SearchSummary  string                 `json:"search_summary"`
	SearchableText string                 `json:"searchable_text,omitempty"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
}

// DocumentRecord is a user-owned document as returned by the store. The
// search core treats records as read-only.
type DocumentRecord struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	DisplayName string           `json:"display_name"`
	Filename    string           `json:"filename"`
	Category    string           `json:"category"`
	Notes       string           `json:"notes"`
	UploadDate  time.Time        `json:"upload_date"`
	Status      string           `json:"status"`
	Analysis    DocumentAnalysis `json:"analysis"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Validate is called at the store boundary so the search pipeline never has
// to access fields defensively.
func (d *DocumentRecord) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(d.OwnerID) == "" {
		return ErrMissingOwnerID
	}
	if strings.TrimSpace(d.DisplayName) == "" {
		return ErrMissingName
	}
	return nil
}

// ApplyDefaults fills optional fields with empty-but-usable values.
func (d *DocumentRecord) ApplyDefaults(now time.Time) {
	if d.Status == "" {
		d.Status = StatusProcessing
	}
	if d.Category == "" {
		d.Category = "Other"
	}
	if d.UploadDate.IsZero() {
		d.UploadDate = now
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Analysis.SearchableText == "" && len(d.Analysis.StructuredData) > 0 {
		d.Analysis.SearchableText = FlattenStructuredData(d.Analysis.StructuredData)
	}
}

// DocumentPatch is a partial update. Nil fields are left untouched.
type DocumentPatch struct {
	DisplayName    *string
	Category       *string
	Notes          *string
	Status         *string
	SearchSummary  *string
	StructuredData map[string]interface{}
}

// ApplyPatch returns a new record with the patch applied and the derived
// searchable text recomputed. The input record is not modified.
func ApplyPatch(doc DocumentRecord, patch DocumentPatch, now time.Time) DocumentRecord {
	out := doc
	if patch.DisplayName != nil {
		out.DisplayName = *patch.DisplayName
	}
	if patch.Category != nil {
		out.Category = *patch.Category
	}
	if patch.Notes != nil {
		out.Notes = *patch.Notes
	}
	if patch.Status != nil {
		out.Status = *patch.Status
	}
	if patch.SearchSummary != nil {
		out.Analysis.SearchSummary = *patch.SearchSummary
	}
	if patch.StructuredData != nil {
		out.Analysis.StructuredData = patch.StructuredData
		out.Analysis.SearchableText = FlattenStructuredData(patch.StructuredData)
	}
	out.UpdatedAt = now
	return out
}

// FlattenStructuredData renders the structured payload as stable
// space-joined "key value" text for substring matching.
func FlattenStructuredData(data map[string]interface{}) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(k)
		builder.WriteString(" ")
		builder.WriteString(flattenValue(data[k]))
	}
	return builder.String()
}

func flattenValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
