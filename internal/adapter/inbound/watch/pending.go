package watch

import (
	"sort"

	"eventtracker/internal/port/inbound"
)

type changeOp int

const (
	opCreate changeOp = iota + 1
	opModify
	opDelete
)

// pendingChanges collapses the events seen for each path during one
// debounce window into a single net change.
type pendingChanges struct {
	ops map[string]changeOp
}

func newPendingChanges() *pendingChanges {
	return &pendingChanges{ops: map[string]changeOp{}}
}

func (p *pendingChanges) record(path string, op changeOp) {
	prev, ok := p.ops[path]
	if !ok {
		p.ops[path] = op
		return
	}
	switch {
	case prev == opCreate && op == opDelete:
		// Never seen by the handler.
		delete(p.ops, path)
	case prev == opCreate:
		// Still new.
	case prev == opDelete && op != opDelete:
		p.ops[path] = opModify
	case prev == opModify && op == opCreate:
		// Replaced in place.
	default:
		p.ops[path] = op
	}
}

func (p *pendingChanges) len() int { return len(p.ops) }

// drain returns the net changes in path order and resets the window.
func (p *pendingChanges) drain() inbound.ChangeBatch {
	paths := make([]string, 0, len(p.ops))
	for path := range p.ops {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var batch inbound.ChangeBatch
	for _, path := range paths {
		switch p.ops[path] {
		case opCreate:
			batch.Created = append(batch.Created, path)
		case opModify:
			batch.Modified = append(batch.Modified, path)
		case opDelete:
			batch.Deleted = append(batch.Deleted, path)
		}
	}
	p.ops = map[string]changeOp{}
	return batch
}
