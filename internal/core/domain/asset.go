package domain

import "time"

// ProductType distinguishes assets that come back from assets that are consumed.
type ProductType string

const (
	TypeReturnable    ProductType = "Returnable"
	TypeNonReturnable ProductType = "Non-returnable"
)

// Asset is a stock item owned by an HR account. ProductQuantity is the
// ledger balance: it never goes negative and is only changed through the
// repository's Reserve/Release operations or an explicit HR edit.
type Asset struct {
	ID              string      `json:"id" bson:"_id,omitempty"`
	OwnerHREmail    string      `json:"owner_hr_email" bson:"owner_hr_email"`
	ProductName     string      `json:"product_name" bson:"product_name"`
	ProductType     ProductType `json:"product_type" bson:"product_type"`
	ProductQuantity int         `json:"product_quantity" bson:"product_quantity"`
	AddedDate       time.Time   `json:"added_date" bson:"added_date"`
}

// Returnable reports whether the asset participates in the return flow.
func (a *Asset) Returnable() bool {
	return a.ProductType == TypeReturnable
}
