// services/chat_service.go - System messages and real-time notifications
package services

import (
	"encoding/json"
	"log"

	"github.com/nouralddin-abdullah/together/models"

	"gorm.io/gorm"
)

// Broadcaster pushes an event to every connected member of a team. The
// websocket hub implements it; tests plug in a recorder.
type Broadcaster interface {
	EmitToTeam(teamID uint, event string, payload interface{})
}

// Real-time event names, one per habit engine signal.
const (
	EventHabitCheckIn       = "habit_checkin"
	EventAllComplete        = "all_complete"
	EventHabitSlip          = "habit_slip"
	EventStreakReset        = "streak_reset"
	EventStreakMilestone    = "streak_milestone"
	EventChallengeCompleted = "challenge_completed"
)

// ChatService persists system messages into the team chat and mirrors them
// onto the real-time channel.
type ChatService struct {
	db          *gorm.DB
	broadcaster Broadcaster
	clock       Clock
}

func NewChatService(db *gorm.DB, broadcaster Broadcaster, clock Clock) *ChatService {
	return &ChatService{db: db, broadcaster: broadcaster, clock: clock}
}

// CreateSystemMessage stores a system message in the team's chat. Metadata is
// JSON-encoded structured context (day numbers, attempt numbers, user ids).
func (s *ChatService) CreateSystemMessage(teamID uint, systemType models.SystemMessageType, content string, actorUserID *uint, metadata map[string]interface{}) error {
	encoded := ""
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("Failed to encode message metadata for team %d: %v", teamID, err)
		} else {
			encoded = string(raw)
		}
	}

	message := &models.Message{
		TeamID:      teamID,
		ActorUserID: actorUserID,
		SystemType:  systemType,
		Content:     content,
		Metadata:    encoded,
		CreatedAt:   s.clock.Now(),
	}

	return s.db.Create(message).Error
}

// GetTeamMessages returns a team's chat history, newest first.
func (s *ChatService) GetTeamMessages(teamID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var messages []models.Message
	err := s.db.Where("team_id = ?", teamID).
		Preload("Actor").
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error

	return messages, err
}

// Emit pushes a real-time event to the team's room. Losing an event is
// acceptable; the persisted system message is the durable record.
func (s *ChatService) Emit(teamID uint, event string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.EmitToTeam(teamID, event, payload)
}
