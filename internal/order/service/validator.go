package service

import (
	"fmt"

	"chakula-delivery/internal/common/errs"
	"chakula-delivery/pkg/geo"
)

func (s *Service) validateCreateInput(in CreateOrderInput) error {
	if in.CustomerID == "" {
		return errs.Validation("customer_id", "customer_id is required")
	}
	if in.VendorID == "" {
		return errs.Validation("vendor_id", "vendor_id is required")
	}
	if len(in.Items) == 0 {
		return errs.Validation("items", "order must contain at least one item")
	}

	for i, item := range in.Items {
		if item.VendorID != in.VendorID {
			return errs.Validation("items", "all items must belong to a single vendor")
		}
		if item.Quantity <= 0 {
			return errs.Validation("items", fmt.Sprintf("item %d has non-positive quantity", i))
		}
		if item.UnitPrice < 0 {
			return errs.Validation("items", fmt.Sprintf("item %d has negative unit price", i))
		}
	}

	if len(in.DeliveryAddress) < 3 {
		return errs.Validation("delivery_address", "delivery address is too short")
	}
	if err := geo.ValidateLatLon(in.DeliveryLat, in.DeliveryLng); err != nil {
		return errs.Validation("delivery_location", err.Error())
	}
	if err := geo.ValidateLatLon(in.VendorLat, in.VendorLng); err != nil {
		return errs.Validation("vendor_location", err.Error())
	}
	if in.TaxAmount < 0 {
		return errs.Validation("tax_amount", "tax amount cannot be negative")
	}

	return nil
}
