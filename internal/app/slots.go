package app

import (
	"context"

	"github.com/sirupsen/logrus"
)

// slot holds at most one outstanding request. Every issue bumps the
// generation; completions carrying an older generation are dropped.
type slot struct {
	gen    uint64
	owner  Operation
	ctx    context.Context
	cancel context.CancelFunc
}

// busy reports whether a request is outstanding
func (s *slot) busy() bool {
	return s.cancel != nil
}

// accept reports whether a completion tagged gen belongs to the outstanding request
func (s *slot) accept(gen uint64) bool {
	return s.busy() && gen == s.gen
}

// release ends the outstanding request
func (s *slot) release() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.ctx = nil
}

// issue starts a new request owned by op, cancelling the previous one.
// A superseded operation owned by someone else drops back to Idle.
func (a *App) issue(s *slot, op Operation) (context.Context, uint64) {
	if s.busy() {
		if s.owner != op && a.ops.get(s.owner) == InFlight {
			a.ops.set(s.owner, Idle)
		}
		a.log.WithFields(logrus.Fields{
			"op":         op,
			"superseded": s.owner,
			"generation": s.gen,
		}).Debug("Superseding outstanding request")
		s.release()
	}

	s.gen++
	s.owner = op
	s.ctx, s.cancel = context.WithCancel(a.ctx)
	a.ops.set(op, InFlight)
	return s.ctx, s.gen
}

// abandon drops the outstanding request so its completion is ignored
func (a *App) abandon(s *slot) {
	if !s.busy() {
		return
	}
	if a.ops.get(s.owner) == InFlight {
		a.ops.set(s.owner, Idle)
	}
	s.release()
}
