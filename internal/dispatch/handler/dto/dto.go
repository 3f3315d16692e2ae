package dto

type AssignRequest struct {
	OrderID  string `json:"order_id"`
	DriverID string `json:"driver_id"`
}

type UpdateStatusRequest struct {
	Status string   `json:"status"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}
