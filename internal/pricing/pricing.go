package pricing

import (
	"math"

	"github.com/Simplici0/glassquote/internal/domain"
)

const (
	// ServiceFeeRate is applied to the subtotal (labour + materials).
	ServiceFeeRate = 0.20
	// VATRate is applied to the subtotal plus service fee.
	VATRate = 0.20
	// ExpressSurcharge is added after tax for express delivery.
	ExpressSurcharge = 90.0
)

// Quote contains all intermediate and line-item values of a composed price.
type Quote struct {
	Grade             domain.Grade        `json:"grade"`
	Delivery          domain.DeliveryType `json:"delivery_type"`
	LabourCost        float64             `json:"labour_cost"`
	MaterialsCost     float64             `json:"materials_cost"`
	Subtotal          float64             `json:"subtotal"`
	ServiceFee        float64             `json:"service_fee"`
	TotalBeforeVAT    float64             `json:"total_before_vat"`
	VAT               float64             `json:"vat"`
	DeliverySurcharge float64             `json:"delivery_surcharge"`
	TotalPrice        float64             `json:"total_price"`
	FinalPrice        int                 `json:"final_price"`
}

// Compose applies the grade multiplier, service fee, VAT and delivery
// surcharge to a grade-neutral breakdown. Only FinalPrice is rounded.
func Compose(b domain.CostBreakdown, grade domain.Grade, delivery domain.DeliveryType) Quote {
	materialsCost := (b.BaseMaterialsCost + b.SpecificationsCost) * grade.Multiplier()
	subtotal := b.LabourCost + materialsCost
	serviceFee := subtotal * ServiceFeeRate
	totalBeforeVAT := subtotal + serviceFee
	vat := totalBeforeVAT * VATRate
	totalPrice := totalBeforeVAT + vat

	surcharge := 0.0
	if delivery == domain.DeliveryExpress {
		surcharge = ExpressSurcharge
	}
	totalPrice += surcharge

	return Quote{
		Grade:             grade,
		Delivery:          delivery,
		LabourCost:        b.LabourCost,
		MaterialsCost:     materialsCost,
		Subtotal:          subtotal,
		ServiceFee:        serviceFee,
		TotalBeforeVAT:    totalBeforeVAT,
		VAT:               vat,
		DeliverySurcharge: surcharge,
		TotalPrice:        totalPrice,
		FinalPrice:        int(math.Round(totalPrice)),
	}
}

// Display returns a copy with every money value rounded to 2 decimal places.
func (q Quote) Display() Quote {
	q.LabourCost = round2(q.LabourCost)
	q.MaterialsCost = round2(q.MaterialsCost)
	q.Subtotal = round2(q.Subtotal)
	q.ServiceFee = round2(q.ServiceFee)
	q.TotalBeforeVAT = round2(q.TotalBeforeVAT)
	q.VAT = round2(q.VAT)
	q.DeliverySurcharge = round2(q.DeliverySurcharge)
	q.TotalPrice = round2(q.TotalPrice)
	return q
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
