package domain

import "strings"

type (
	ConnID string
	RoomID string
)

const competitionPrefix = "competition_"

// CompetitionID strips the competition prefix from a room id. Rooms not
// derived from a competition return the raw id.
func (id RoomID) CompetitionID() string {
	return strings.TrimPrefix(string(id), competitionPrefix)
}

// RoomIDForCompetition builds the room id used for a competition's live room.
func RoomIDForCompetition(competitionID string) RoomID {
	if strings.HasPrefix(competitionID, competitionPrefix) {
		return RoomID(competitionID)
	}
	return RoomID(competitionPrefix + competitionID)
}
