package dragdrop

import (
	"fmt"
	"time"

	"github.com/avoran/casetree/internal/contract"
	"github.com/avoran/casetree/internal/domain"
	"github.com/google/uuid"
)

// Session is the state of one drag interaction: the node being dragged,
// the current hover target, and the classified zone. It is scoped to a
// single gesture and discarded on drop or cancel; nothing in it is ever
// persisted.
type Session struct {
	Token     string
	Dragged   *domain.TreeNode
	Target    *domain.TreeNode
	Zone      domain.DropZone
	StartedAt time.Time
}

// Start begins a drag for the given node.
func Start(dragged *domain.TreeNode) *Session {
	return &Session{
		Token:     uuid.New().String(),
		Dragged:   dragged,
		Zone:      domain.ZoneInvalid,
		StartedAt: time.Now().UTC(),
	}
}

// HoverAt updates the session for a pointer position over target and
// returns the classified zone.
func (s *Session) HoverAt(target *domain.TreeNode, offsetY, height float64) domain.DropZone {
	zone := ClassifyZone(offsetY, height, target.Kind, target.ID == s.Dragged.ID)
	s.Target = target
	s.Zone = zone
	return zone
}

// Hover updates the session with an externally chosen zone, sanitizing
// combinations the classifier would never produce: hovering the dragged
// node itself and middle zones on test cases are both invalid.
func (s *Session) Hover(target *domain.TreeNode, zone domain.DropZone) domain.DropZone {
	if target.ID == s.Dragged.ID {
		zone = domain.ZoneInvalid
	}
	if zone == domain.ZoneMiddle && !target.CanHaveChildren() {
		zone = domain.ZoneInvalid
	}
	s.Target = target
	s.Zone = zone
	return s.Zone
}

// CanDrop reports whether the current hover state would produce a
// structural request.
func (s *Session) CanDrop() bool {
	if s.Target == nil {
		return false
	}
	_, _, ok := ZoneIntent(s.Zone)
	return ok
}

// BuildRequest distills the session into the structural edit to hand to
// the tree mutation engine.
func (s *Session) BuildRequest() (contract.DragDropRequest, error) {
	if s.Target == nil {
		return contract.DragDropRequest{}, fmt.Errorf("drag session has no hover target")
	}
	dropType, pos, ok := ZoneIntent(s.Zone)
	if !ok {
		return contract.DragDropRequest{}, fmt.Errorf("zone %q does not produce a drop", s.Zone)
	}
	return contract.DragDropRequest{
		DraggedNodeID: s.Dragged.ID,
		TargetNodeID:  s.Target.ID,
		DropType:      dropType,
		Position:      pos,
	}, nil
}

// Cancel clears the session so a stale reference cannot build a request.
func (s *Session) Cancel() {
	s.Dragged = nil
	s.Target = nil
	s.Zone = domain.ZoneInvalid
}
