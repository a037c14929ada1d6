package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaText     MediaType = "text"
	MediaDocument MediaType = "document"
)

const (
	AnalysisStatusComplete   = "complete"
	AnalysisStatusNoSubjects = "no_subjects_detected"
)

// AnalysisRecord is created once per analyze call. Only Downloaded changes afterwards.
type AnalysisRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID string    `gorm:"column:session_id;not null;index" json:"session_id"`
	MediaType MediaType `gorm:"column:media_type;not null" json:"media_type"`
	Status    string    `gorm:"column:status;not null;default:'complete'" json:"status"`

	People        datatypes.JSON `gorm:"column:people" json:"people,omitempty"`
	Assessments   datatypes.JSON `gorm:"column:assessments" json:"assessments,omitempty"`
	GroupDynamics datatypes.JSON `gorm:"column:group_dynamics" json:"group_dynamics,omitempty"`
	Transcription datatypes.JSON `gorm:"column:transcription" json:"transcription,omitempty"`
	VideoInsights datatypes.JSON `gorm:"column:video_insights" json:"video_insights,omitempty"`

	ProvidersUsed datatypes.JSON `gorm:"column:providers_used" json:"providers_used,omitempty"`
	Note          string         `gorm:"column:note;type:text;not null;default:''" json:"note,omitempty"`
	Downloaded    bool           `gorm:"column:downloaded;not null;default:false" json:"downloaded"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (AnalysisRecord) TableName() string { return "analysis_record" }

func (r *AnalysisRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

type ChatMessage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  string     `gorm:"column:session_id;not null;index" json:"session_id"`
	AnalysisID *uuid.UUID `gorm:"type:uuid;column:analysis_id;index" json:"analysis_id,omitempty"`
	Role       string     `gorm:"column:role;not null" json:"role"`
	Content    string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Provider   string     `gorm:"column:provider" json:"provider,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ChatMessage) TableName() string { return "analysis_chat_message" }

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
