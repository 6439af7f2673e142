package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionClose  AuditAction = "close"
)

type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" firestore:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at" firestore:"created_at"`

	UserID   string `gorm:"size:36;index" json:"user_id" firestore:"user_id"`
	UserName string `gorm:"size:100" json:"user_name" firestore:"user_name"`

	// "shift", "shift_transaction"
	EntityType string `gorm:"size:50;index" json:"entity_type" firestore:"entity_type"`
	EntityID   string `gorm:"size:36;index" json:"entity_id" firestore:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action" firestore:"action"`
	Description string      `gorm:"size:255" json:"description" firestore:"description"`

	BeforeData string `gorm:"type:jsonb" json:"before_data" firestore:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data" firestore:"after_data"`
}
