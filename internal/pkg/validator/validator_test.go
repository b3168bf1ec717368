package validator

import "testing"

type payBillForm struct {
	BillRef  string `json:"bill_ref" validate:"required"`
	BillType string `json:"bill_type" validate:"omitempty,bill_type"`
}

func TestBillTypeValidation(t *testing.T) {
	for _, valid := range []string{"", "BILL_PAYMENT", "RENT_PAYMENT", "MAINTENANCE_FEE", "LATE_FEE", "CHARGES"} {
		if details := Validate(payBillForm{BillRef: "RENT-2026-08", BillType: valid}); details != nil {
			t.Errorf("bill type %q should validate, got %v", valid, details)
		}
	}

	details := Validate(payBillForm{BillRef: "RENT-2026-08", BillType: "GROCERIES"})
	if details == nil {
		t.Fatal("unknown bill type should fail validation")
	}
	if msg, ok := details["bill_type"]; !ok || msg != "unsupported bill type" {
		t.Errorf("details = %v, want bill_type keyed message", details)
	}
}
