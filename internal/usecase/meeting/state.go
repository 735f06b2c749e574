package meeting

import (
	"github.com/recapcrew/recap-engine/internal/domain/entities"
)

// transitions is the full lifecycle graph. Deleted is terminal and reachable
// from every other state; everything else moves forward only, except the
// explicit Review->Processing re-run.
var transitions = map[entities.MeetingStatus]map[entities.MeetingStatus]bool{
	entities.MeetingStatusDraft: {
		entities.MeetingStatusProcessing: true,
		entities.MeetingStatusDeleted:    true,
	},
	entities.MeetingStatusProcessing: {
		entities.MeetingStatusReview:  true,
		entities.MeetingStatusFailed:  true,
		entities.MeetingStatusDeleted: true,
	},
	entities.MeetingStatusReview: {
		entities.MeetingStatusPublished:  true,
		entities.MeetingStatusProcessing: true, // explicit re-run, discards pending review edits
		entities.MeetingStatusDeleted:    true,
	},
	entities.MeetingStatusPublished: {
		entities.MeetingStatusDeleted: true,
	},
	entities.MeetingStatusFailed: {
		entities.MeetingStatusDeleted: true,
	},
	entities.MeetingStatusDeleted: {},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to entities.MeetingStatus) bool {
	return transitions[from][to]
}
