package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/mira-backend/internal/confession"
)

// CurrentVersion is the snapshot layout written by Encode.
const CurrentVersion = 2

var ErrUnsupportedVersion = errors.New("snapshot version is newer than this build")

// migrations[v] upgrades a state from version v to v+1.
var migrations = map[int]func(*State){
	1: migrateReactionKeys,
}

// Encode serialises s at CurrentVersion.
func Encode(s *State) ([]byte, error) {
	s.Version = CurrentVersion
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.OwnerID, err)
	}
	return data, nil
}

// Decode parses a snapshot of any known version and upgrades it in place.
func Decode(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if err := migrate(&s); err != nil {
		return nil, err
	}
	s.ensureMaps()
	return &s, nil
}

func migrate(s *State) error {
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}
	for s.Version < CurrentVersion {
		if step, ok := migrations[s.Version]; ok {
			step(s)
		}
		s.Version++
	}
	return nil
}

// migrateReactionKeys rewrites the word keys ("like", "love", ...) of older
// builds to emoji in both the aggregates and the per-user records.
func migrateReactionKeys(s *State) {
	for i := range s.Confessions {
		confession.MigrateReactions(&s.Confessions[i])
	}
	for confID, byUser := range s.UserReactions {
		for userID, key := range byUser {
			e, ok := confession.MigrateReactionKey(key)
			if !ok {
				delete(byUser, userID)
				continue
			}
			byUser[userID] = e
		}
		if len(byUser) == 0 {
			delete(s.UserReactions, confID)
		}
	}
}
