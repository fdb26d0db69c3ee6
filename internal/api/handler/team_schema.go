package handler

import "time"

type directAssignRequest struct {
	EmployeeEmail string `json:"employee_email" validate:"required,email"`
	AssetID       string `json:"asset_id"       validate:"required"`
}

type bulkAffiliateRequest struct {
	EmployeeIDs []string `json:"employee_ids" validate:"required,min=1,dive,required"`
}

type bulkAffiliateResponse struct {
	Affiliated int   `json:"affiliated"`
	TeamCount  int64 `json:"team_count"`
}

type teamMemberResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	JoinedDate *time.Time `json:"joined_date,omitempty"`
}

type listMembersResponse struct {
	Data  []teamMemberResponse `json:"data"`
	Total int                  `json:"total"`
}
