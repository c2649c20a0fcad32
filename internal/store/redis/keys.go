package redis

import "fmt"

const keyPrefix = "rankedle"

// sessionKey returns the Redis key for a serialized game session.
func sessionKey(id string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// playerDayIndexKey returns the key mapping (player, day) to a session ID.
func playerDayIndexKey(playerID, day string) string {
	return fmt.Sprintf("%s:idx:player_day:%s:%s", keyPrefix, playerID, day)
}
