package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatLogRecord is one processed chat message with the pipeline's verdict.
type ChatLogRecord struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Relevant  bool      `json:"relevant"`
	Rule      string    `json:"rule"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName binds the record to the chat_log table.
func (ChatLogRecord) TableName() string {
	return "chat_log"
}

// NewChatLogRecord builds a record for msg.
func NewChatLogRecord(msg ChatMessage, response string, relevant bool, rule string) ChatLogRecord {
	return ChatLogRecord{
		ID:        uuid.New(),
		Author:    msg.Author,
		Timestamp: msg.Timestamp,
		Message:   msg.Text,
		Response:  response,
		Relevant:  relevant,
		Rule:      rule,
		Source:    msg.Source,
		CreatedAt: time.Now().UTC(),
	}
}
