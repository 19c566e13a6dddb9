package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RoomAnswerKey returns the cache key for a room's answer-key hash.
// Fields are question IDs; values hold the correct index, resolved
// points and explanation.
func (r *CacheKeyStruct) RoomAnswerKey(roomID string) string {
	return fmt.Sprintf("room:%s:key", roomID)
}

// RoomSessionKey returns the cache key for a room's session tracking hash.
func (r *CacheKeyStruct) RoomSessionKey(roomID string) string {
	return fmt.Sprintf("room:%s:session", roomID)
}

// RoomProgressKey returns the cache key for a room's per-participant
// answered-question counters.
func (r *CacheKeyStruct) RoomProgressKey(roomID string) string {
	return fmt.Sprintf("room:%s:session:progress", roomID)
}

// ParticipantOrderKey returns the cache key for a participant's shuffled
// question order in a room.
func (r *CacheKeyStruct) ParticipantOrderKey(roomID, participantKey string) string {
	return fmt.Sprintf("room:%s:participant:%s:order", roomID, participantKey)
}

var CacheKey = NewCacheKeyStruct()
