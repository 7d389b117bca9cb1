package billing

import "strings"

// Money represents a monetary value stored in minor units.
type Money = int64

// DealKind identifies how a deal discounts a line item.
type DealKind string

const (
	// DealPercentage discounts a fixed fraction of the line subtotal.
	DealPercentage DealKind = "percentage"
	// DealFlatAmount discounts a fixed amount, capped at the line subtotal.
	DealFlatAmount DealKind = "flat_amount"
	// DealBogo makes every second unit of the line free.
	DealBogo DealKind = "bogo"
)

// Item describes one bill line as entered by the operator.
type Item struct {
	DishName  string
	Qty       int
	UnitPrice Money
	DealID    *string
}

// Deal captures a discount rule applicable to a single line item. Only the
// field matching Kind is meaningful: PercentBps for percentage deals,
// Amount for flat_amount deals, neither for bogo.
type Deal struct {
	ID         string
	Kind       DealKind
	PercentBps int32
	Amount     Money
	Active     bool
}

// Catalog resolves deal references. Lookup must report false for unknown
// ids; a stale or deactivated reference is treated as "no discount", never
// as an error.
type Catalog interface {
	Lookup(id string) (Deal, bool)
}

// Deals is an in-memory Catalog keyed by deal id.
type Deals map[string]Deal

// Lookup implements Catalog.
func (d Deals) Lookup(id string) (Deal, bool) {
	deal, ok := d[id]
	return deal, ok
}

// Summary aggregates the computed bill components.
type Summary struct {
	Subtotal              Money
	Discount              Money
	SubtotalAfterDiscount Money
	Tax                   Money
	Total                 Money
}

// Line reports the per-item breakdown in input order.
type Line struct {
	DishName  string
	Qty       int
	UnitPrice Money
	Subtotal  Money
	Discount  Money
}

// ItemSubtotal returns qty * unit price. Lines with a non-positive quantity
// or a negative unit price contribute nothing; the calculator clamps rather
// than rejects since it is a display tool, not a ledger of record.
func ItemSubtotal(it Item) Money {
	if it.Qty <= 0 || it.UnitPrice < 0 {
		return 0
	}
	return Money(it.Qty) * it.UnitPrice
}

// ItemDiscount computes the discount granted to a single line. Unknown deal
// ids, inactive deals and unrecognized kinds all yield zero.
func ItemDiscount(it Item, deals Catalog) Money {
	if it.DealID == nil || strings.TrimSpace(*it.DealID) == "" || deals == nil {
		return 0
	}
	deal, ok := deals.Lookup(*it.DealID)
	if !ok || !deal.Active {
		return 0
	}
	subtotal := ItemSubtotal(it)
	if subtotal <= 0 {
		return 0
	}
	var discount Money
	switch deal.Kind {
	case DealPercentage:
		if deal.PercentBps <= 0 {
			return 0
		}
		discount = (subtotal * Money(deal.PercentBps)) / 10000
	case DealFlatAmount:
		discount = deal.Amount
	case DealBogo:
		// Buy one get one: a single unit earns nothing.
		if it.Qty < 2 {
			return 0
		}
		discount = Money(it.Qty/2) * it.UnitPrice
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Compute derives the bill summary for the given lines, deal catalog and
// tax rate in basis points. It never fails: malformed lines are clamped and
// unresolvable deal references silently grant no discount.
func Compute(items []Item, deals Catalog, taxBps int) Summary {
	var subtotal, discount Money
	for _, it := range items {
		subtotal += ItemSubtotal(it)
		discount += ItemDiscount(it, deals)
	}
	if discount > subtotal {
		discount = subtotal
	}
	taxable := subtotal - discount
	if taxBps < 0 {
		taxBps = 0
	}
	tax := (taxable * Money(taxBps)) / 10000
	return Summary{
		Subtotal:              subtotal,
		Discount:              discount,
		SubtotalAfterDiscount: taxable,
		Tax:                   tax,
		Total:                 taxable + tax,
	}
}

// ComputeLines returns the per-item breakdown, preserving input order.
func ComputeLines(items []Item, deals Catalog) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{
			DishName:  it.DishName,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  ItemSubtotal(it),
			Discount:  ItemDiscount(it, deals),
		})
	}
	return lines
}

// PercentToBps converts a decimal percentage (e.g. 12.5) into basis points.
// Negative rates clamp to zero.
func PercentToBps(percent float64) int {
	if percent <= 0 {
		return 0
	}
	return int(percent*100 + 0.5)
}
