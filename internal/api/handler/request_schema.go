package handler

import "time"

type createRequestRequest struct {
	AssetID string `json:"asset_id" validate:"required"`
	HREmail string `json:"hr_email" validate:"required,email"`
}

type decideRequestRequest struct {
	Decision string `json:"decision" validate:"required,oneof=Approve Reject"`
}

type requestResponse struct {
	ID           string     `json:"id"`
	AssetID      string     `json:"asset_id"`
	AssetName    string     `json:"asset_name"`
	AssetType    string     `json:"asset_type"`
	UserEmail    string     `json:"user_email"`
	UserName     string     `json:"user_name"`
	HREmail      string     `json:"hr_email"`
	Status       string     `json:"status"`
	RequestDate  time.Time  `json:"request_date"`
	ApprovalDate *time.Time `json:"approval_date,omitempty"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
}

type listRequestsResponse struct {
	Data  []requestResponse `json:"data"`
	Total int               `json:"total"`
}
