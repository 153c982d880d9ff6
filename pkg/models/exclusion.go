package models

import "time"

// BuildingExclusion records that two buildings are confirmed distinct and must
// never be re-suggested as duplicates. Building1ID always holds the smaller id
// so (A,B) and (B,A) land on the same row.
type BuildingExclusion struct {
	ID          int64     `json:"id" db:"id"`
	Building1ID int64     `json:"building1_id" db:"building1_id"`
	Building2ID int64     `json:"building2_id" db:"building2_id"`
	Reason      *string   `json:"reason,omitempty" db:"reason"`
	ExcludedBy  *string   `json:"excluded_by,omitempty" db:"excluded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ExcludeBuildingsRequest is the request for marking two buildings as not duplicates
type ExcludeBuildingsRequest struct {
	Building1ID int64  `json:"building1_id" validate:"required,gt=0"`
	Building2ID int64  `json:"building2_id" validate:"required,gt=0"`
	Reason      string `json:"reason,omitempty"`
}

// ExcludeBuildingsResponse is the response for a successful exclusion
type ExcludeBuildingsResponse struct {
	Success     bool   `json:"success"`
	ExclusionID int64  `json:"exclusion_id"`
	Message     string `json:"message"`
}

// ExclusionListResponse is the response for listing exclusions
type ExclusionListResponse struct {
	Exclusions []BuildingExclusion `json:"exclusions"`
	Total      int                 `json:"total"`
}

// BulkDeleteResponse is shared by the exclusion and merge history bulk delete endpoints
type BulkDeleteResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}
