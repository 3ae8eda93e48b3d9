package assign

import (
	"sort"
	"time"

	"github.com/nightjarhq/nightjar-backend/internal/modules/capacity"
	"github.com/nightjarhq/nightjar-backend/internal/modules/ledger"
)

// Propose matches each open request to the producer who can fulfil it
// soonest, based purely on declared capacity. It is deterministic for a
// given input and never errors: requests no producer can serve come back
// as blocked proposals.
//
// Eligibility is having a capacity declaration for the item. The estimate
// is now when current stock covers the quantity, otherwise the days needed
// to produce the shortfall at the declared daily rate. Ties break toward
// the larger stock, then the lexically smaller producer ID.
func Propose(open []*ledger.Request, caps []*capacity.ProducerCapacity, now time.Time) []Proposal {
	// Stable producer order makes the tie-break reproducible regardless of
	// store iteration order.
	sorted := make([]*capacity.ProducerCapacity, len(caps))
	copy(sorted, caps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProducerID < sorted[j].ProducerID })

	proposals := make([]Proposal, 0, len(open))
	for _, req := range open {
		proposals = append(proposals, proposeOne(req, sorted, now))
	}
	return proposals
}

func proposeOne(req *ledger.Request, caps []*capacity.ProducerCapacity, now time.Time) Proposal {
	itemID := req.CatalogItemID.String()

	best := Proposal{RequestID: req.ID.String(), Blocked: true, Reason: "no producer has declared capacity for this item"}
	bestStock := -1

	for _, pc := range caps {
		ic, ok := pc.Items[itemID]
		if !ok {
			continue
		}
		est, feasible := estimate(ic, req.Quantity, now)
		if !feasible {
			if best.Blocked && best.Reason == "no producer has declared capacity for this item" {
				best.Reason = "declared capacity cannot cover the requested quantity"
			}
			continue
		}
		if best.Blocked || est.Before(best.Estimate) ||
			(est.Equal(best.Estimate) && ic.CurrentStock > bestStock) {
			best = Proposal{RequestID: req.ID.String(), ProducerID: pc.ProducerID, Estimate: est}
			bestStock = ic.CurrentStock
		}
	}
	return best
}

// estimate returns when the producer could fulfil the quantity. Stock on
// hand fulfils immediately; a shortfall is produced at the daily rate,
// rounded up to whole days. A zero rate with insufficient stock is
// infeasible.
func estimate(ic capacity.ItemCapacity, quantity int, now time.Time) (time.Time, bool) {
	if ic.CurrentStock >= quantity {
		return now, true
	}
	if ic.CapacityPerDay <= 0 {
		return time.Time{}, false
	}
	shortfall := quantity - ic.CurrentStock
	days := (shortfall + ic.CapacityPerDay - 1) / ic.CapacityPerDay
	return now.AddDate(0, 0, days), true
}
