package billing

import "testing"

func strPtr(s string) *string { return &s }

func activeDeals() Deals {
	return Deals{
		"pct20":  {ID: "pct20", Kind: DealPercentage, PercentBps: 2000, Active: true},
		"flat20": {ID: "flat20", Kind: DealFlatAmount, Amount: 2000, Active: true},
		"bogo":   {ID: "bogo", Kind: DealBogo, Active: true},
		"off":    {ID: "off", Kind: DealPercentage, PercentBps: 5000, Active: false},
	}
}

func TestItemDiscountNoDeal(t *testing.T) {
	it := Item{DishName: "Nasi Goreng", Qty: 2, UnitPrice: 3500}
	if got := ItemDiscount(it, activeDeals()); got != 0 {
		t.Fatalf("expected zero discount without a deal, got %d", got)
	}
}

func TestItemDiscountInactiveDeal(t *testing.T) {
	it := Item{DishName: "Sate", Qty: 3, UnitPrice: 1000, DealID: strPtr("off")}
	if got := ItemDiscount(it, activeDeals()); got != 0 {
		t.Fatalf("inactive deal must grant no discount, got %d", got)
	}
}

func TestItemDiscountUnknownDeal(t *testing.T) {
	it := Item{DishName: "Sate", Qty: 3, UnitPrice: 1000, DealID: strPtr("gone")}
	if got := ItemDiscount(it, activeDeals()); got != 0 {
		t.Fatalf("unknown deal id must grant no discount, got %d", got)
	}
}

func TestItemDiscountUnrecognizedKind(t *testing.T) {
	deals := Deals{"mystery": {ID: "mystery", Kind: DealKind("loyalty_points"), Active: true}}
	it := Item{DishName: "Es Teh", Qty: 1, UnitPrice: 500, DealID: strPtr("mystery")}
	if got := ItemDiscount(it, deals); got != 0 {
		t.Fatalf("unrecognized kind must grant no discount, got %d", got)
	}
}

func TestPercentageDeal(t *testing.T) {
	it := Item{DishName: "Gado Gado", Qty: 3, UnitPrice: 1000, DealID: strPtr("pct20")}
	if got := ItemSubtotal(it); got != 3000 {
		t.Fatalf("expected subtotal 3000, got %d", got)
	}
	if got := ItemDiscount(it, activeDeals()); got != 600 {
		t.Fatalf("expected 20%% discount of 600, got %d", got)
	}
}

func TestFlatAmountCapped(t *testing.T) {
	it := Item{DishName: "Kerupuk", Qty: 1, UnitPrice: 500, DealID: strPtr("flat20")}
	if got := ItemDiscount(it, activeDeals()); got != 500 {
		t.Fatalf("flat deal must cap at line subtotal, got %d", got)
	}
}

func TestBogoEdgeCases(t *testing.T) {
	single := Item{DishName: "Bakso", Qty: 1, UnitPrice: 900, DealID: strPtr("bogo")}
	if got := ItemDiscount(single, activeDeals()); got != 0 {
		t.Fatalf("bogo on a single unit grants nothing, got %d", got)
	}
	four := Item{DishName: "Bakso", Qty: 4, UnitPrice: 900, DealID: strPtr("bogo")}
	if got := ItemDiscount(four, activeDeals()); got != 1800 {
		t.Fatalf("bogo on qty 4 frees 2 units (1800), got %d", got)
	}
	odd := Item{DishName: "Bakso", Qty: 5, UnitPrice: 900, DealID: strPtr("bogo")}
	if got := ItemDiscount(odd, activeDeals()); got != 1800 {
		t.Fatalf("bogo on qty 5 still frees floor(5/2)=2 units, got %d", got)
	}
}

func TestComputeEndToEnd(t *testing.T) {
	deals := Deals{"d1": {ID: "d1", Kind: DealPercentage, PercentBps: 2500, Active: true}}
	items := []Item{{DishName: "Taco", Qty: 2, UnitPrice: 800, DealID: strPtr("d1")}}
	sum := Compute(items, deals, 1000)
	if sum.Subtotal != 1600 {
		t.Fatalf("expected subtotal 1600, got %d", sum.Subtotal)
	}
	if sum.Discount != 400 {
		t.Fatalf("expected discount 400, got %d", sum.Discount)
	}
	if sum.SubtotalAfterDiscount != 1200 {
		t.Fatalf("expected taxable 1200, got %d", sum.SubtotalAfterDiscount)
	}
	if sum.Tax != 120 {
		t.Fatalf("expected tax 120, got %d", sum.Tax)
	}
	if sum.Total != 1320 {
		t.Fatalf("expected total 1320, got %d", sum.Total)
	}
}

func TestComputeEmptyBill(t *testing.T) {
	sum := Compute(nil, activeDeals(), 1100)
	if sum.Subtotal != 0 || sum.Discount != 0 || sum.Tax != 0 || sum.Total != 0 {
		t.Fatalf("empty bill must be all zeros, got %+v", sum)
	}
}

func TestComputeConsistency(t *testing.T) {
	deals := activeDeals()
	items := []Item{
		{DishName: "A", Qty: 2, UnitPrice: 800, DealID: strPtr("pct20")},
		{DishName: "B", Qty: 1, UnitPrice: 300, DealID: strPtr("flat20")},
		{DishName: "C", Qty: 5, UnitPrice: 450, DealID: strPtr("bogo")},
		{DishName: "D", Qty: 3, UnitPrice: 1250},
	}
	var prev Summary
	for n := 1; n <= len(items); n++ {
		sum := Compute(items[:n], deals, 1000)
		if sum.Discount > sum.Subtotal {
			t.Fatalf("discount %d exceeds subtotal %d", sum.Discount, sum.Subtotal)
		}
		if sum.Total != sum.SubtotalAfterDiscount+sum.Tax {
			t.Fatalf("total %d != taxable %d + tax %d", sum.Total, sum.SubtotalAfterDiscount, sum.Tax)
		}
		if sum.Subtotal < prev.Subtotal || sum.Discount < prev.Discount {
			t.Fatalf("adding an item decreased subtotal or discount: %+v -> %+v", prev, sum)
		}
		prev = sum
	}
}

func TestComputeClampsMalformedLines(t *testing.T) {
	items := []Item{
		{DishName: "ok", Qty: 2, UnitPrice: 100},
		{DishName: "zero qty", Qty: 0, UnitPrice: 400},
		{DishName: "negative price", Qty: 3, UnitPrice: -50},
	}
	sum := Compute(items, nil, 0)
	if sum.Subtotal != 200 {
		t.Fatalf("malformed lines must contribute nothing, got subtotal %d", sum.Subtotal)
	}
	if sum.Total != 200 {
		t.Fatalf("expected total 200, got %d", sum.Total)
	}
}

func TestComputeLinesPreservesOrder(t *testing.T) {
	deals := activeDeals()
	items := []Item{
		{DishName: "second course", Qty: 1, UnitPrice: 700},
		{DishName: "first course", Qty: 2, UnitPrice: 400, DealID: strPtr("pct20")},
	}
	lines := ComputeLines(items, deals)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].DishName != "second course" || lines[1].DishName != "first course" {
		t.Fatalf("line order must match input order: %+v", lines)
	}
	if lines[1].Discount != 160 {
		t.Fatalf("expected 160 discount on second line, got %d", lines[1].Discount)
	}
}

func TestPercentToBps(t *testing.T) {
	cases := []struct {
		percent float64
		want    int
	}{
		{0, 0},
		{-5, 0},
		{10, 1000},
		{12.5, 1250},
		{100, 10000},
		{110, 11000},
	}
	for _, tc := range cases {
		if got := PercentToBps(tc.percent); got != tc.want {
			t.Fatalf("PercentToBps(%v) = %d, want %d", tc.percent, got, tc.want)
		}
	}
}
