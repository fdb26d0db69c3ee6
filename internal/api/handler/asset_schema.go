package handler

import "time"

type assetRequest struct {
	ProductName     string `json:"product_name"     validate:"required"`
	ProductType     string `json:"product_type"     validate:"required,oneof=Returnable Non-returnable"`
	ProductQuantity int    `json:"product_quantity" validate:"gte=0"`
}

type assetResponse struct {
	ID              string    `json:"id"`
	OwnerHREmail    string    `json:"owner_hr_email"`
	ProductName     string    `json:"product_name"`
	ProductType     string    `json:"product_type"`
	ProductQuantity int       `json:"product_quantity"`
	AddedDate       time.Time `json:"added_date"`
}

type listAssetsResponse struct {
	Data  []assetResponse `json:"data"`
	Total int             `json:"total"`
}
