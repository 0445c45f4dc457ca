package projectlock

import (
	"context"
	"strings"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/event"
)

type heldKey struct{}

// heldLocks is the chain of locks held by one call chain, newest first. It is
// immutable; nesting a lock adds a link in a derived context.
type heldLocks struct {
	coord *Coordinator
	all   bool
	id    buildid.Project
	next  *heldLocks
}

// withHeld records a newly granted lock in the context given to its action.
func withHeld(ctx context.Context, c *Coordinator, id buildid.Project, all bool) context.Context {
	prev, _ := ctx.Value(heldKey{}).(*heldLocks)
	return context.WithValue(ctx, heldKey{}, &heldLocks{coord: c, all: all, id: id, next: prev})
}

// heldFrom returns the chain of locks held in ctx if any of them belong to c.
func heldFrom(ctx context.Context, c *Coordinator) *heldLocks {
	h, _ := ctx.Value(heldKey{}).(*heldLocks)
	for l := h; l != nil; l = l.next {
		if l.coord == c {
			return h
		}
	}
	return nil
}

func (h *heldLocks) holdsAll(c *Coordinator) bool {
	for l := h; l != nil; l = l.next {
		if l.coord == c && l.all {
			return true
		}
	}
	return false
}

func (h *heldLocks) holds(c *Coordinator, id buildid.Project) bool {
	for l := h; l != nil; l = l.next {
		if l.coord == c && !l.all && l.id == id {
			return true
		}
	}
	return false
}

func (h *heldLocks) describe(c *Coordinator) string {
	var names []string
	for l := h; l != nil; l = l.next {
		if l.coord != c {
			continue
		}
		if l.all {
			names = append(names, event.AllProjects)
		} else {
			names = append(names, l.id.String())
		}
	}
	return strings.Join(names, ", ")
}
