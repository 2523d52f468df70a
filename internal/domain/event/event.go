package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypePromptCreated   Type = "prompt_created"
	TypePromptUpdated   Type = "prompt_updated"
	TypeVersionCreated  Type = "version_created"
	TypePromptRestored  Type = "prompt_restored"
	TypeVersionLabelled Type = "version_labelled"
	TypePromptUsed      Type = "prompt_used"
	TypePromptDeleted   Type = "prompt_deleted"
	TypeCategorySaved   Type = "category_saved"
	TypeCategoryDeleted Type = "category_deleted"
	TypeTagSaved        Type = "tag_saved"
	TypeTagDeleted      Type = "tag_deleted"
)

// Channel is a domain-scoped notification channel.
// All event types within a domain share one LISTEN connection.
type Channel string

const (
	ChannelPrompt   Channel = "prompt"
	ChannelCategory Channel = "category"
	ChannelTag      Channel = "tag"
)

// Channels lists every channel, for subscribers that want everything.
var Channels = []Channel{ChannelPrompt, ChannelCategory, ChannelTag}

var typeToChannel = map[Type]Channel{
	TypePromptCreated:   ChannelPrompt,
	TypePromptUpdated:   ChannelPrompt,
	TypeVersionCreated:  ChannelPrompt,
	TypePromptRestored:  ChannelPrompt,
	TypeVersionLabelled: ChannelPrompt,
	TypePromptUsed:      ChannelPrompt,
	TypePromptDeleted:   ChannelPrompt,
	TypeCategorySaved:   ChannelCategory,
	TypeCategoryDeleted: ChannelCategory,
	TypeTagSaved:        ChannelTag,
	TypeTagDeleted:      ChannelTag,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the appropriate repository.
type Event struct {
	Type      Type      `json:"type"`
	EntityID  string    `json:"entity_id"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func New(eventType Type, entityID uuid.UUID) Event {
	return Event{
		Type:      eventType,
		EntityID:  entityID.String(),
		Timestamp: time.Now().UTC(),
	}
}

// NewVersioned is New for events that concern one snapshot of a prompt.
func NewVersioned(eventType Type, entityID uuid.UUID, version string) Event {
	e := New(eventType, entityID)
	e.Version = version
	return e
}

// NewCategory builds a category event; categories use slug ids.
func NewCategory(eventType Type, categoryID string) Event {
	return newKeyed(eventType, categoryID)
}

func NewTag(eventType Type, tagID string) Event {
	return newKeyed(eventType, tagID)
}

func newKeyed(eventType Type, id string) Event {
	return Event{
		Type:      eventType,
		EntityID:  id,
		Timestamp: time.Now().UTC(),
	}
}
