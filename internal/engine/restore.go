package engine

import (
	"klartext/internal/errors"
	"klartext/internal/page"
)

// Restore writes every retained original back into the document and clears
// the retained mapping. Rejected while Restoring or while a scan walks the
// tree; calling it during Batching discards that run's still-in-flight
// results rather than aborting their requests.
//
// Stats are left untouched: they keep reporting the prior run's counters
// until the next run resets them.
func (e *Engine) Restore() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRestoring || e.state == StateScanning {
		return 0, errors.NewInvalidState("restore", string(e.state))
	}
	if e.doc == nil {
		return 0, errors.NewNoDocument()
	}

	e.state = StateRestoring

	// Bumping the generation first makes any result applied from here on
	// stale; a racing run stops at its next batch boundary.
	e.generation++

	restored := 0
	for _, r := range e.originals {
		if page.SetText(e.doc, r.loc, r.original) {
			restored++
		}
	}
	e.originals = make(map[string]retained)

	e.state = StateIdle
	return restored, nil
}
