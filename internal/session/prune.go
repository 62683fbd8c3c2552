package session

import "time"

// PruneReport counts what a prune or sweep removed.
type PruneReport struct {
	Messages        int  `json:"messages"`
	Confessions     int  `json:"confessions"`
	Threads         int  `json:"threads"`
	Chats           int  `json:"chats"`
	Crushes         int  `json:"crushes"`
	Reveals         int  `json:"reveals"`
	LimitsRefreshed bool `json:"limits_refreshed"`
}

// Empty reports whether nothing changed.
func (r PruneReport) Empty() bool {
	return r == PruneReport{}
}

// Add accumulates o into r.
func (r *PruneReport) Add(o PruneReport) {
	r.Messages += o.Messages
	r.Confessions += o.Confessions
	r.Threads += o.Threads
	r.Chats += o.Chats
	r.Crushes += o.Crushes
	r.Reveals += o.Reveals
	r.LimitsRefreshed = r.LimitsRefreshed || o.LimitsRefreshed
}

// PruneExpired removes messages due at now, the listed confessions with their
// reactions and provisioned threads, the listed chats and crushes, and every
// conversation whose own expiry passed. Unknown ids are ignored, so running it
// twice with the same arguments removes nothing more.
func (s *State) PruneExpired(now time.Time, confessionIDs, chatIDs, crushIDs []string) PruneReport {
	var r PruneReport
	r.Messages = s.Inbox.PruneMessages(now)

	for _, id := range confessionIDs {
		if _, ok := s.confession(id); !ok {
			continue
		}
		if s.removeConfession(id) {
			r.Threads++
		}
		r.Confessions++
	}

	if len(chatIDs) > 0 {
		kept := s.Chats[:0]
		for _, ch := range s.Chats {
			if contains(chatIDs, ch.ID) {
				r.Chats++
				continue
			}
			kept = append(kept, ch)
		}
		s.Chats = kept
	}

	if len(crushIDs) > 0 {
		kept := s.SecretCrushes[:0]
		for _, sc := range s.SecretCrushes {
			if contains(crushIDs, sc.ID) {
				r.Crushes++
				continue
			}
			kept = append(kept, sc)
		}
		s.SecretCrushes = kept
	}

	for _, id := range s.Inbox.ExpiredConversations(now) {
		if s.removeConversation(id) {
			r.Threads++
		}
	}
	return r
}

// removeConfession drops a confession, its reaction records, its seen marker
// and the thread provisioned from it. It reports whether a thread went too.
func (s *State) removeConfession(id string) bool {
	for i := range s.Confessions {
		if s.Confessions[i].ID == id {
			s.Confessions = append(s.Confessions[:i], s.Confessions[i+1:]...)
			break
		}
	}
	delete(s.UserReactions, id)
	s.SeenTaggedConfessionIDs = removeString(s.SeenTaggedConfessionIDs, id)

	threadID, ok := s.ConfessionThreads.Forget(id)
	if !ok {
		return false
	}
	s.removeConversation(threadID)
	return true
}

// ExpiredIDs lists the confessions, chats and crushes whose expiry is at or
// before now.
func (s *State) ExpiredIDs(now time.Time) (confessionIDs, chatIDs, crushIDs []string) {
	for i := range s.Confessions {
		if s.Confessions[i].Expired(now) {
			confessionIDs = append(confessionIDs, s.Confessions[i].ID)
		}
	}
	for i := range s.Chats {
		if s.Chats[i].Expired(now) {
			chatIDs = append(chatIDs, s.Chats[i].ID)
		}
	}
	for i := range s.SecretCrushes {
		if s.SecretCrushes[i].Expired(now) {
			crushIDs = append(crushIDs, s.SecretCrushes[i].ID)
		}
	}
	return confessionIDs, chatIDs, crushIDs
}

// Sweep applies due timed reveals, prunes everything expired at now and
// refreshes elapsed quota windows.
func (s *State) Sweep(now time.Time) PruneReport {
	reveals := 0
	for i := range s.Confessions {
		if s.Confessions[i].ApplyReveal(now) {
			reveals++
		}
	}
	confessionIDs, chatIDs, crushIDs := s.ExpiredIDs(now)
	r := s.PruneExpired(now, confessionIDs, chatIDs, crushIDs)
	r.Reveals = reveals
	r.LimitsRefreshed = s.Limits.Refresh(now)
	return r
}
