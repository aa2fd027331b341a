package events

import (
	"github.com/viralforge/interaction-service/internal/domain"
)

// Topics is the broker topology: one topic per event kind, a delay topic
// that feeds redeliveries back into the kind topics, and a dead-letter
// topic.
type Topics struct {
	ByKind     map[domain.EventKind]string
	Retry      string
	DeadLetter string
}

func DefaultTopics() Topics {
	return Topics{
		ByKind: map[domain.EventKind]string{
			domain.EventKindLike:        "interaction.like",
			domain.EventKindBookmark:    "interaction.bookmark",
			domain.EventKindComment:     "interaction.comment",
			domain.EventKindStatsUpdate: "interaction.stats",
		},
		Retry:      "interaction.retry",
		DeadLetter: "interaction.dlq",
	}
}

func (t Topics) ForKind(kind domain.EventKind) string {
	if topic, ok := t.ByKind[kind]; ok && topic != "" {
		return topic
	}
	return "interaction." + string(kind)
}
