// Package filter implements the admission state machine (§4.G): the six
// checks a ScoredItem must pass to become ACCEPTED, and the append-only
// NEW→CLASSIFIED→{ACCEPTED→DISPATCHED→LOGGED}|{REJECTED→LOGGED} transition
// log. There is no UN-ACCEPT transition.
package filter

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/dedup"
	"github.com/lowfloat/catalystrun/internal/model"
)

// Admission applies the six checks from §4.G to classified items. It holds
// no mutable cycle state itself beyond the dedup store handle passed in at
// construction, so the same Admission is safe for concurrent calls across
// items within a cycle (classification is CPU-bound and happens in fetch
// order; admission does not need to serialize beyond the dedup store's own
// single-writer discipline).
type Admission struct {
	settings *config.Settings
	dedup    *dedup.Store
}

// New builds an Admission against the given settings and dedup store.
func New(settings *config.Settings, store *dedup.Store) *Admission {
	return &Admission{settings: settings, dedup: store}
}

// Decide runs the six admission checks against a classified item and
// returns either an accepted ScoredItem or a RejectedItem carrying the
// primary (and any secondary) rejection reasons. Exactly one of the two
// return values is populated.
//
// Checks, in the order the primary reason is chosen when several fail
// simultaneously: no ticker, then price gate, then score, then
// confidence, then freshness, then duplicate. This ordering matches the
// classifier's own step order (§4.F) so a single failure mode dominates
// the reported reason even when several checks would independently fail.
func (a *Admission) Decide(item model.ScoredItem) (accepted *model.ScoredItem, rejected *model.RejectedItem) {
	var primary model.RejectionReason
	var secondary []model.RejectionReason

	fail := func(reason model.RejectionReason) {
		if primary == "" {
			primary = reason
		} else {
			secondary = append(secondary, reason)
		}
	}

	if len(item.Tickers) == 0 {
		fail(model.ReasonNoTicker)
	}

	hasPrice := item.LastPrice > 0
	inBand := hasPrice && item.LastPrice >= a.settings.PriceBandLower && item.LastPrice <= a.settings.PriceBandUpper
	switch {
	case !hasPrice:
		fail(model.ReasonNoPrice)
	case !inBand:
		fail(model.ReasonPriceOutOfBand)
	}

	if item.SourceWeight < a.settings.MinScore {
		fail(model.ReasonBelowMinScore)
	}

	if item.Confidence < a.settings.MinConfidence {
		fail(model.ReasonLowConfidence)
	}

	if item.TSObserved.Sub(item.TSPublished) > a.settings.MaxAge {
		fail(model.ReasonStale)
	}

	duplicate := a.dedup != nil && a.dedup.Seen(item.SourceID, item.CanonicalID)
	if duplicate {
		fail(model.ReasonDuplicate)
	}

	if primary != "" {
		item.State = model.StateRejected
		logTransition(item.SourceID, item.CanonicalID, model.StateClassified, model.StateRejected, string(primary))
		return nil, &model.RejectedItem{ScoredItem: item, RejectionReason: primary, SecondaryReasons: secondary}
	}

	item.State = model.StateAccepted
	logTransition(item.SourceID, item.CanonicalID, model.StateClassified, model.StateAccepted, "")
	return &item, nil
}

// MarkLogged records the terminal LOGGED transition and, for accepted
// items, marks the dedup store so the item is never admitted again. Called
// once a journal write has actually completed, keeping the "every journal
// record's key is present in the dedup store" invariant (spec.md
// invariant b) intact even if the process crashes between admission and
// the journal flush.
func (a *Admission) MarkLogged(sourceID, canonicalID string, tsObserved time.Time, fromState model.ItemState) error {
	logTransition(sourceID, canonicalID, fromState, model.StateLogged, "")
	if fromState == model.StateAccepted || fromState == model.StateDispatched {
		if a.dedup != nil {
			return a.dedup.Mark(sourceID, canonicalID, tsObserved)
		}
	}
	return nil
}

func logTransition(sourceID, canonicalID string, from, to model.ItemState, reason string) {
	evt := log.Debug().
		Str("source_id", sourceID).
		Str("canonical_id", canonicalID).
		Str("from", string(from)).
		Str("to", string(to))
	if reason != "" {
		evt = evt.Str("reason", reason)
	}
	evt.Msg("item state transition")
}
