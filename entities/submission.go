package entities

import (
	"github.com/google/uuid"
)

// SubmissionBatch is one accepted submit-orders call.
type SubmissionBatch struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Manager    string    `gorm:"index" json:"manager"`
	OrderCount int       `json:"order_count"`
	Message    string    `json:"message"`

	Orders []*SubmittedOrder `gorm:"foreignKey:BatchID"`
	Timestamp
}

// SubmittedOrder is one positional row of a batch.
type SubmittedOrder struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	BatchID     uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	Position    int       `json:"position"`
	OrderNumber string    `gorm:"index" json:"order_number"`
	Row         string    `gorm:"type:text" json:"row"` // JSON array in canonical field order
	ImageURL    string    `json:"image_url,omitempty"`

	Timestamp
}
