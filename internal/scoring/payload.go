package scoring

import (
	"fmt"
	"strconv"

	"github.com/mbd888/sellerrisk/internal/dataset"
	"github.com/mbd888/sellerrisk/internal/model"
)

// Payload keys outside the feature set.
const (
	KeyOrderID       = "Order_ID"
	KeyMarketplaceID = "marketplace_id"
)

// OrderFromPayload coerces a decoded JSON order. Numeric fields that are
// missing or unparseable become 0; string fields that are missing become "".
func OrderFromPayload(payload map[string]any) dataset.Order {
	num := func(key string) float64 { return dataset.FloatOf(payload[key], 0) }
	str := func(key string) string { return stringOf(payload[key]) }

	return dataset.Order{
		OrderID:            str(KeyOrderID),
		ProductCategory:    str(model.ColProductCategory),
		ProductPrice:       num(model.ColProductPrice),
		DiscountApplied:    num(model.ColDiscountApplied),
		DeliveryTimeDays:   num(model.ColDeliveryTimeDays),
		CustomerType:       str(model.ColCustomerType),
		PaymentMethod:      str(model.ColPaymentMethod),
		CustomerReturnRate: num(model.ColCustomerReturnRate),
		ProductRating:      num(model.ColProductRating),
		MarketplaceID:      str(KeyMarketplaceID),
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
