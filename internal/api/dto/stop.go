package dto

type StopResponse struct {
	StopID int     `json:"stop_id"`
	Role   string  `json:"role"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Demand float64 `json:"demand"`
}

type ListStopsResponse struct {
	Stops []StopResponse `json:"stops"`
}
