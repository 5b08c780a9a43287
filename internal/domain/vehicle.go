package domain

type VehicleID int

// Collection vehicle with a load capacity and the stops the optimizer
// assigned to it. Stops on its route that are not assigned are driven
// through without collecting.
type Vehicle struct {
	ID            VehicleID
	Capacity      float64
	AssignedStops map[StopID]struct{}
}

func NewVehicle(id VehicleID, capacity float64, assigned []StopID) Vehicle {
	v := Vehicle{ID: id, Capacity: capacity}
	if len(assigned) > 0 {
		v.AssignedStops = make(map[StopID]struct{}, len(assigned))
		for _, s := range assigned {
			v.AssignedStops[s] = struct{}{}
		}
	}
	return v
}

// IsAssigned reports whether the vehicle collects at stop. With no explicit
// assignment every stop counts as assigned.
func (v Vehicle) IsAssigned(stop StopID) bool {
	if len(v.AssignedStops) == 0 {
		return true
	}
	_, ok := v.AssignedStops[stop]
	return ok
}
