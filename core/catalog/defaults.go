package catalog

import "matali-pricing/core/types"

// Canonical service keys of the built-in catalog
const (
	KeyPreparation = "preparation_team"
	KeyShipping    = "shipping_cost"
	KeyStorage     = "storage_fee"
	KeyReceiving   = "receiving_service"
)

// Default returns the built-in catalog of revenue account labels.
// Unknown labels fall back to preparation_team.
func Default() *Catalog {
	c := New(KeyPreparation)
	for _, svc := range []types.Service{
		{Key: KeyPreparation, Group: "fulfillment", Name: "Order preparation", Unit: "order",
			Labels: []string{"ايراد التجهيز"}, CapacityType: types.CapacityDaily},
		{Key: KeyShipping, Group: "shipping", Name: "Shipping", Unit: "shipment",
			Labels: []string{"ايراد الشحن"}, CapacityType: types.CapacityDaily},
		{Key: KeyStorage, Group: "storage", Name: "Storage", Unit: "pallet",
			Labels: []string{"ايراد التخزين"}, CapacityType: types.CapacityStatic},
		{Key: KeyReceiving, Group: "receiving", Name: "Receiving", Unit: "pallet",
			Labels: []string{"ايراد الاستلام"}, CapacityType: types.CapacityDaily},
	} {
		if err := c.Register(svc); err != nil {
			panic("catalog: built-in service: " + err.Error())
		}
	}
	return c
}
