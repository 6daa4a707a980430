package reconcile

import (
	"fmt"
	"strings"

	"clubreg/models"
)

// Display strings for the aggregate payment status. Per-installment labels
// stay in the club's own wording; they are shown verbatim on the public form.
const (
	StatusPaid          = "Paid"
	StatusFamilyPaid    = "Family Total Paid"
	StatusPartialReview = "Partial Payment (Under Review)"
)

// Snapshot is the reconciliation-relevant slice of one stored record
type Snapshot struct {
	PlanSize    int
	Method      models.PaymentMethod
	PrevPaid    [3]bool // receipt link present per slot, the ground truth
	PriorStatus string  // previous aggregate text, read back only for the Familiar marker
}

// SnapshotOf reads the reconciliation state from a record. Paid-ness comes
// exclusively from receipt-link presence, never from the display flags.
func SnapshotOf(e *models.Enrollee) Snapshot {
	s := Snapshot{
		PlanSize:    e.InstallmentPlan,
		Method:      e.PaymentMethod,
		PriorStatus: e.PaymentStatus,
	}
	for i := 1; i <= 3; i++ {
		s.PrevPaid[i-1] = strings.TrimSpace(e.InstallmentReceipt(i)) != ""
	}
	return s
}

// Derived is the recomputed state for one record
type Derived struct {
	NowPaid   [3]bool
	PaidCount int
	Complete  bool
	Labels    []string // per-installment labels, truncated to the plan size
	Aggregate string
}

// hadFamilyMark is the one sanctioned read-back of rendered status text: a
// previously paid installment keeps its "Familiar" label across re-derivations.
// Everything else is recomputed from receipt presence.
func hadFamilyMark(priorStatus string, slot int) bool {
	return strings.Contains(priorStatus, fmt.Sprintf("C%d Familiar", slot))
}

// Derive recomputes a record's payment state from its snapshot and the tags
// being paid now. Pure function; persistence is the caller's concern.
func Derive(s Snapshot, tags TagSet, isFamily bool) Derived {
	var d Derived

	for i := 0; i < 3; i++ {
		d.NowPaid[i] = s.PrevPaid[i] || tags[InstallmentTag(i+1)]
		if d.NowPaid[i] {
			d.PaidCount++
		}
	}

	// A plan of size 0 can never complete via installment count (0 >= 0 would
	// always hold); lump payers complete only through the total/external tag.
	d.Complete = s.PlanSize > 0 && d.PaidCount >= s.PlanSize
	if s.Method != models.PaymentMethodInstallments && tags.HasTotal() {
		d.Complete = true
	}

	d.Labels = buildLabels(s, tags, isFamily, d.NowPaid)

	if s.Method == models.PaymentMethodInstallments {
		d.Aggregate = strings.Join(d.Labels, ", ")
	} else if d.Complete {
		if isFamily {
			d.Aggregate = StatusFamilyPaid
		} else {
			d.Aggregate = StatusPaid
		}
	} else {
		d.Aggregate = StatusPartialReview
	}

	return d
}

// buildLabels renders one label per installment slot up to the plan size.
// An installment paid in this call by a family payment, or one that already
// carried the family mark, is labeled "Familiar Pagada".
func buildLabels(s Snapshot, tags TagSet, isFamily bool, nowPaid [3]bool) []string {
	size := s.PlanSize
	if size > 3 {
		size = 3
	}
	if size < 0 {
		size = 0
	}

	labels := make([]string, 0, size)
	for i := 1; i <= size; i++ {
		if !nowPaid[i-1] {
			labels = append(labels, fmt.Sprintf("C%d Pendiente", i))
			continue
		}
		switch {
		case tags[InstallmentTag(i)] && isFamily:
			labels = append(labels, fmt.Sprintf("C%d Familiar Pagada", i))
		case s.PrevPaid[i-1] && hadFamilyMark(s.PriorStatus, i):
			labels = append(labels, fmt.Sprintf("C%d Familiar Pagada", i))
		default:
			labels = append(labels, fmt.Sprintf("C%d Pagada", i))
		}
	}
	return labels
}
