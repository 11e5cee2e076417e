package pricing

import (
	"math"
	"testing"

	"github.com/Simplici0/glassquote/internal/domain"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

var exampleBreakdown = domain.CostBreakdown{
	LabourCost:         140,
	BaseMaterialsCost:  120,
	SpecificationsCost: 0,
}

func TestCompose_OEEStandard(t *testing.T) {
	q := Compose(exampleBreakdown, domain.GradeOEE, domain.DeliveryStandard)

	nearlyEqual(t, "materialsCost", q.MaterialsCost, 120)
	nearlyEqual(t, "subtotal", q.Subtotal, 260)
	nearlyEqual(t, "serviceFee", q.ServiceFee, 52)
	nearlyEqual(t, "totalBeforeVAT", q.TotalBeforeVAT, 312)
	nearlyEqual(t, "vat", q.VAT, 62.40)
	nearlyEqual(t, "totalPrice", q.TotalPrice, 374.40)
	if q.FinalPrice != 374 {
		t.Fatalf("finalPrice = %d, want 374", q.FinalPrice)
	}
}

func TestCompose_OEMStandard(t *testing.T) {
	q := Compose(exampleBreakdown, domain.GradeOEM, domain.DeliveryStandard)

	nearlyEqual(t, "materialsCost", q.MaterialsCost, 168)
	nearlyEqual(t, "subtotal", q.Subtotal, 308)
	nearlyEqual(t, "serviceFee", q.ServiceFee, 61.60)
	nearlyEqual(t, "totalBeforeVAT", q.TotalBeforeVAT, 369.60)
	nearlyEqual(t, "vat", q.VAT, 73.92)
	nearlyEqual(t, "totalPrice", q.TotalPrice, 443.52)
	if q.FinalPrice != 444 {
		t.Fatalf("finalPrice = %d, want 444", q.FinalPrice)
	}
}

func TestCompose_ExpressAddsSurchargeBeforeRounding(t *testing.T) {
	q := Compose(exampleBreakdown, domain.GradeOEE, domain.DeliveryExpress)

	nearlyEqual(t, "deliverySurcharge", q.DeliverySurcharge, 90)
	nearlyEqual(t, "totalPrice", q.TotalPrice, 464.40)
	if q.FinalPrice != 464 {
		t.Fatalf("finalPrice = %d, want 464", q.FinalPrice)
	}
}

func TestCompose_SpecificationsAreGraded(t *testing.T) {
	b := domain.CostBreakdown{LabourCost: 100, BaseMaterialsCost: 50, SpecificationsCost: 50}

	q := Compose(b, domain.GradeOEM, domain.DeliveryStandard)

	nearlyEqual(t, "materialsCost", q.MaterialsCost, 140)
	nearlyEqual(t, "subtotal", q.Subtotal, 240)
}

func TestCompose_OEMNeverCheaperThanOEE(t *testing.T) {
	breakdowns := []domain.CostBreakdown{
		{},
		exampleBreakdown,
		{LabourCost: 320, BaseMaterialsCost: 745, SpecificationsCost: 260},
		{LabourCost: 90, BaseMaterialsCost: 0.01},
	}
	for _, b := range breakdowns {
		for _, d := range []domain.DeliveryType{domain.DeliveryStandard, domain.DeliveryExpress} {
			oem := Compose(b, domain.GradeOEM, d)
			oee := Compose(b, domain.GradeOEE, d)
			if oem.FinalPrice < oee.FinalPrice {
				t.Fatalf("OEM %d < OEE %d for %+v", oem.FinalPrice, oee.FinalPrice, b)
			}
		}
	}
}

func TestQuoteDisplay_RoundsToTwoPlaces(t *testing.T) {
	q := Compose(domain.CostBreakdown{LabourCost: 100.123, BaseMaterialsCost: 10}, domain.GradeOEE, domain.DeliveryStandard)
	d := q.Display()

	nearlyEqual(t, "labourCost", d.LabourCost, 100.12)
	nearlyEqual(t, "subtotal", d.Subtotal, 110.12)
	nearlyEqual(t, "serviceFee", d.ServiceFee, 22.02)
	if d.FinalPrice != q.FinalPrice {
		t.Fatalf("display changed final price: %d vs %d", d.FinalPrice, q.FinalPrice)
	}
}
