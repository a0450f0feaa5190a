package session

import (
	"github.com/iudanet/pagecollab/internal/crdt"
	"github.com/iudanet/pagecollab/internal/models"
)

// SetCursor publishes the local selection. Indexes are converted to relative
// positions so remote participants see the cursor move with the text.
func (s *Session) SetCursor(anchor, head int) {
	s.mu.Lock()
	p, closed := s.provider, s.closed
	s.mu.Unlock()
	if p == nil || closed {
		return
	}

	p.SetCursor(s.doc.PositionAt(anchor), s.doc.PositionAt(head))
}

// RemoteCursors returns the cursors of other participants resolved against
// the local document. Cursors pointing at text not received yet are skipped.
func (s *Session) RemoteCursors() []models.Cursor {
	s.mu.Lock()
	p, closed := s.provider, s.closed
	s.mu.Unlock()
	if p == nil || closed {
		return nil
	}

	peers := p.Peers()
	cursors := make([]models.Cursor, 0, len(peers))
	for _, peer := range peers {
		anchor := s.doc.IndexOf(crdt.ID{Replica: peer.Anchor.Replica, Seq: peer.Anchor.Seq})
		head := s.doc.IndexOf(crdt.ID{Replica: peer.Head.Replica, Seq: peer.Head.Seq})
		if anchor < 0 || head < 0 {
			continue
		}
		cursors = append(cursors, models.Cursor{
			ClientID: peer.ClientID,
			UserID:   peer.UserID,
			Name:     peer.Name,
			Color:    peer.Color,
			Anchor:   anchor,
			Head:     head,
		})
	}
	return cursors
}
