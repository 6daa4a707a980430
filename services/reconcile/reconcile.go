// Package reconcile recomputes and persists installment payment state for
// enrollee records. State is always re-derived from persisted receipt links so
// the outcome survives partial failures and repeated submissions.
package reconcile

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"clubreg/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the target DNI has no enrollee record
var ErrNotFound = errors.New("reconcile: enrollee not found")

// Payer identifies the adult submitting the receipt
type Payer struct {
	Name string
	DNI  string
}

// Request is one receipt submission to apply
type Request struct {
	DNI            string
	ReceiptLink    string
	Tags           TagSet
	Payer          Payer
	IsFamily       bool
	ReportedAmount string
	SubMethod      string
}

// Outcome is the reconciled state of one record after a submission
type Outcome struct {
	Complete  bool
	Aggregate string
	PaidCount int
	PlanSize  int
	PaidNow   []int // installment slots paid by this call
}

// Result summarizes a whole submission, including family fan-out
type Result struct {
	Principal      Outcome
	MembersTouched int
	MemberNames    []string
}

// FindByDNI resolves the target record. DNI must already be canonical.
func FindByDNI(db *gorm.DB, dni string) (*models.Enrollee, error) {
	var e models.Enrollee
	if err := db.Where("dni = ? AND is_deleted = ?", dni, false).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// DryRun derives the aggregate status a submission would produce without
// touching storage. Used to build the receipt file name before upload.
func DryRun(db *gorm.DB, dni string, tags TagSet, isFamily bool) (string, error) {
	e, err := FindByDNI(db, dni)
	if err != nil {
		return "", err
	}
	snap := SnapshotOf(e)
	if e.PaymentMethod == models.PaymentMethodInstallments && snap.PlanSize < 1 {
		snap.PlanSize = 3
	}
	return Derive(snap, tags, isFamily).Aggregate, nil
}

// Apply reconciles a submission against the target record and, for family
// payments, every record sharing its family link. Records are processed
// sequentially; each sibling write is its own unit and is not rolled back if
// a later one fails.
func Apply(db *gorm.DB, req Request) (Result, error) {
	principal, err := FindByDNI(db, req.DNI)
	if err != nil {
		return Result{}, err
	}

	if !req.IsFamily || principal.FamilyLink == "" {
		if req.IsFamily {
			log.Printf("reconcile: family payment for %s but no family link, applying to the one record", req.DNI)
		}
		out, err := applyOne(db, principal, req)
		if err != nil {
			return Result{}, err
		}
		return Result{Principal: out, MembersTouched: 1, MemberNames: []string{principal.FirstName}}, nil
	}

	var family []models.Enrollee
	if err := db.Where("family_link = ? AND is_deleted = ?", principal.FamilyLink, false).
		Order("turn_number asc").Find(&family).Error; err != nil {
		return Result{}, err
	}

	res := Result{}
	for i := range family {
		member := &family[i]
		if member.ID == principal.ID {
			out, err := applyOne(db, member, req)
			if err != nil {
				return res, err
			}
			res.Principal = out
		} else {
			if _, err := applySibling(db, member, req); err != nil {
				return res, err
			}
		}
		res.MembersTouched++
		res.MemberNames = append(res.MemberNames, member.FirstName)
	}

	log.Printf("reconcile: family payment applied to %d members of %s", res.MembersTouched, principal.FamilyLink)
	return res, nil
}

// applyOne runs the full reconciliation for the directly targeted record
func applyOne(db *gorm.DB, e *models.Enrollee, req Request) (Outcome, error) {
	method := e.PaymentMethod

	// A registered installment payer with a missing or invalid plan size gets
	// the default 3-installment plan persisted back.
	if method == models.PaymentMethodInstallments && e.InstallmentPlan < 1 {
		e.InstallmentPlan = 3
	}
	if e.InstallmentPlan < 0 {
		e.InstallmentPlan = 0
	}

	if req.ReportedAmount != "" {
		e.ReportedAmount = req.ReportedAmount
	}
	if method == models.PaymentMethodInstallments && req.SubMethod != "" {
		e.InstallmentSubMethod = req.SubMethod
	}

	d := Derive(SnapshotOf(e), req.Tags, req.IsFamily)

	// Payer history accumulates only when a receipt is actually being written
	if req.ReceiptLink != "" {
		appendPayer(e, req.Payer)
	}

	// Receipt link: a lump/total receipt lands in the lump field; an
	// installment receipt lands in every slot it pays (one receipt may cover
	// several installments).
	if req.ReceiptLink != "" {
		if method != models.PaymentMethodInstallments || req.Tags.HasTotal() {
			e.LumpReceipt = req.ReceiptLink
		} else {
			for _, t := range req.Tags.Sorted() {
				if i := t.Index(); i > 0 {
					e.SetInstallmentReceipt(i, req.ReceiptLink)
				}
			}
		}
	}

	// Display flags are only ever touched for installment payers
	if method == models.PaymentMethodInstallments {
		if d.Complete {
			for i := 1; i <= e.InstallmentPlan && i <= 3; i++ {
				e.SetInstallmentState(i, models.InstallmentPaid)
			}
		} else {
			for _, t := range req.Tags.Sorted() {
				if i := t.Index(); i > 0 {
					e.SetInstallmentState(i, models.InstallmentPendingReview)
				}
			}
		}
	}

	e.PaymentStatus = d.Aggregate

	if err := db.Save(e).Error; err != nil {
		return Outcome{}, fmt.Errorf("reconcile: saving %s: %w", e.DNI, err)
	}
	log.Printf("reconcile: %s -> %q (paid %d of %d)", e.DNI, d.Aggregate, d.PaidCount, e.InstallmentPlan)

	return Outcome{
		Complete:  d.Complete,
		Aggregate: d.Aggregate,
		PaidCount: d.PaidCount,
		PlanSize:  e.InstallmentPlan,
		PaidNow:   paidNowSlots(req.Tags),
	}, nil
}

// applySibling applies a family payment to one linked record. The sibling's
// own method and plan decide where the receipt lands; its state is recomputed
// from a fresh read after the writes.
func applySibling(db *gorm.DB, sib *models.Enrollee, req Request) (Outcome, error) {
	method := sib.PaymentMethod
	plan := sib.InstallmentPlan
	if plan < 0 {
		plan = 0
	}

	local := req.Tags.Clone()
	totalPrincipal := req.Tags.HasTotal()

	// A lump payment by the principal counts as the sibling's next open
	// installment: pick the first slot without a receipt.
	synthesized := 0
	if totalPrincipal && method == models.PaymentMethodInstallments {
		for i := 1; i <= 3; i++ {
			if strings.TrimSpace(sib.InstallmentReceipt(i)) == "" {
				local[InstallmentTag(i)] = true
				synthesized = i
				break
			}
		}
	}

	if req.ReportedAmount != "" {
		sib.ReportedAmount = req.ReportedAmount
	}
	if method == models.PaymentMethodInstallments && req.SubMethod != "" {
		sib.InstallmentSubMethod = req.SubMethod
	}

	if req.ReceiptLink != "" {
		appendPayer(sib, req.Payer)
	}

	// Lump-sum sibling: attach the receipt to the lump field and short-circuit
	// past the per-installment label logic.
	if plan == 0 {
		if req.ReceiptLink != "" {
			sib.LumpReceipt = req.ReceiptLink
		}
		if req.IsFamily {
			sib.PaymentStatus = StatusFamilyPaid
		} else {
			sib.PaymentStatus = StatusPaid
		}
		if err := db.Save(sib).Error; err != nil {
			return Outcome{}, fmt.Errorf("reconcile: saving sibling %s: %w", sib.DNI, err)
		}
		return Outcome{Complete: true, Aggregate: sib.PaymentStatus, PlanSize: 0}, nil
	}

	// Mark the installments paid now (display flags, pending review)
	if method == models.PaymentMethodInstallments {
		for _, t := range local.Sorted() {
			if i := t.Index(); i > 0 {
				sib.SetInstallmentState(i, models.InstallmentPendingReview)
			}
		}
	}

	if req.ReceiptLink != "" {
		if totalPrincipal && method != models.PaymentMethodInstallments {
			sib.LumpReceipt = req.ReceiptLink
		} else {
			for _, t := range local.Sorted() {
				if i := t.Index(); i > 0 {
					sib.SetInstallmentReceipt(i, req.ReceiptLink)
				}
			}
			// Last resort: every slot already holds a receipt, attach to
			// slot 1 rather than dropping the receipt.
			if totalPrincipal && method == models.PaymentMethodInstallments && synthesized == 0 {
				sib.SetInstallmentReceipt(1, req.ReceiptLink)
				local[TagInstallment1] = true
			}
		}
	}

	if err := db.Save(sib).Error; err != nil {
		return Outcome{}, fmt.Errorf("reconcile: saving sibling %s: %w", sib.DNI, err)
	}

	// Re-read the row now that the writes have happened; the label pass must
	// see the sibling's current stored state, not a stale copy.
	fresh, err := FindByDNI(db, sib.DNI)
	if err != nil {
		return Outcome{}, err
	}

	out := deriveSiblingStatus(fresh, local, req.IsFamily, plan)

	if method != models.PaymentMethodInstallments && totalPrincipal {
		if req.IsFamily {
			out.Aggregate = StatusFamilyPaid
		} else {
			out.Aggregate = StatusPaid
		}
		out.Complete = true
	}

	fresh.PaymentStatus = out.Aggregate
	if err := db.Save(fresh).Error; err != nil {
		return Outcome{}, fmt.Errorf("reconcile: saving sibling %s: %w", sib.DNI, err)
	}
	*sib = *fresh
	log.Printf("reconcile: sibling %s -> %q (paid %d of %d)", sib.DNI, out.Aggregate, out.PaidCount, plan)
	return out, nil
}

// deriveSiblingStatus rebuilds a sibling's labels from its freshly read
// receipt links. An installment paid by this family operation, or covered by
// the principal's lump payment, carries the family mark.
func deriveSiblingStatus(fresh *models.Enrollee, local TagSet, isFamily bool, plan int) Outcome {
	size := plan
	if size > 3 {
		size = 3
	}

	labels := make([]string, 0, size)
	paid := 0
	for i := 1; i <= size; i++ {
		hasReceipt := strings.TrimSpace(fresh.InstallmentReceipt(i)) != ""
		if !hasReceipt {
			labels = append(labels, fmt.Sprintf("C%d Pendiente", i))
			continue
		}
		paid++
		switch {
		case isFamily && local[InstallmentTag(i)]:
			labels = append(labels, fmt.Sprintf("C%d Familiar Pagada", i))
		case hadFamilyMark(fresh.PaymentStatus, i):
			labels = append(labels, fmt.Sprintf("C%d Familiar Pagada", i))
		default:
			labels = append(labels, fmt.Sprintf("C%d Pagada", i))
		}
	}

	out := Outcome{
		PaidCount: paid,
		PlanSize:  plan,
		Complete:  plan > 0 && paid >= plan,
		PaidNow:   paidNowSlots(local),
	}

	switch {
	case paid == 0:
		n := plan
		if n == 0 {
			n = 3
		}
		out.Aggregate = fmt.Sprintf("Pendiente (%d Cuotas)", n)
	default:
		out.Aggregate = strings.Join(labels, ", ")
	}
	return out
}

// appendPayer accumulates the payer identity on the record, comma-joined
func appendPayer(e *models.Enrollee, p Payer) {
	if cur := strings.TrimSpace(e.PayerNames); cur != "" {
		e.PayerNames = cur + ", " + p.Name
	} else {
		e.PayerNames = p.Name
	}
	if cur := strings.TrimSpace(e.PayerDNIs); cur != "" {
		e.PayerDNIs = cur + ", " + p.DNI
	} else {
		e.PayerDNIs = p.DNI
	}
}

func paidNowSlots(tags TagSet) []int {
	var out []int
	for _, t := range tags.Sorted() {
		if i := t.Index(); i > 0 {
			out = append(out, i)
		}
	}
	return out
}
