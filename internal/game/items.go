package game

// Shop item identifiers as they appear on the wire.
const (
	ItemStrengthUpgrade = "StrengthUpgrade"
	ItemHealthPotion    = "HealthPotion"
	ItemShieldUpgrade   = "ShieldUpgrade"
	ItemFreezePotion    = "FreezePotion"
)

// itemPrices is the fixed catalog. Read-only reference data, never mutated
// at runtime; selling refunds the full purchase price.
var itemPrices = map[string]int{
	ItemStrengthUpgrade: 50,
	ItemHealthPotion:    20,
	ItemShieldUpgrade:   40,
	ItemFreezePotion:    60,
}

// ItemPrice returns the catalog price for an item, and whether the item exists.
func ItemPrice(item string) (int, bool) {
	price, ok := itemPrices[item]
	return price, ok
}
