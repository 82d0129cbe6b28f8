package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AttachmentState string

const (
	AttachmentUploading AttachmentState = "uploading"
	AttachmentStored    AttachmentState = "stored"
)

// Item is one line item of an order.
type Item struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	Value     decimal.Decimal `json:"value"`
	Quantity  int             `json:"quantity"`
	Weight    decimal.Decimal `json:"weight"`
	Length    decimal.Decimal `json:"length"`
	Width     decimal.Decimal `json:"width"`
	Height    decimal.Decimal `json:"height"`
	Status    string          `json:"status"`
	Note      string          `json:"note"`
	Images    []Image         `json:"images"`
	CreatedAt time.Time       `json:"created_at"`
}

// ItemPatch is a partial item update. Nil fields are left untouched.
type ItemPatch struct {
	Name     *string          `json:"name,omitempty"`
	URL      *string          `json:"url,omitempty"`
	Value    *decimal.Decimal `json:"value,omitempty"`
	Quantity *int             `json:"quantity,omitempty"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
	Length   *decimal.Decimal `json:"length,omitempty"`
	Width    *decimal.Decimal `json:"width,omitempty"`
	Height   *decimal.Decimal `json:"height,omitempty"`
	Status   *string          `json:"status,omitempty"`
	Note     *string          `json:"note,omitempty"`
}

func (p ItemPatch) Apply(it Item) Item {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.URL != nil {
		it.URL = *p.URL
	}
	if p.Value != nil {
		it.Value = *p.Value
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Weight != nil {
		it.Weight = *p.Weight
	}
	if p.Length != nil {
		it.Length = *p.Length
	}
	if p.Width != nil {
		it.Width = *p.Width
	}
	if p.Height != nil {
		it.Height = *p.Height
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.Note != nil {
		it.Note = *p.Note
	}
	return it
}

// Image belongs to a line item.
type Image struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	MimeType  string          `json:"mime_type"`
	Size      int64           `json:"size"`
	State     AttachmentState `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Attachment belongs to the order directly.
type Attachment struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	MimeType  string          `json:"mime_type"`
	Size      int64           `json:"size"`
	State     AttachmentState `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// FileUpload is a file handed to the data service for storage. How the bytes
// reach the storage backend is the data service's concern.
type FileUpload struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Content  []byte `json:"content,omitempty"`
}
