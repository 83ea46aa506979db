package models

import "time"

// PedestrianStatus describes the crossing request as seen by clients. Requested and Waiting are
// both true from acceptance until the crossing ends; Crossing and Phase tell the two apart.
type PedestrianStatus struct {
	Requested   bool       `json:"requested"`
	Waiting     bool       `json:"waiting"`
	Crossing    bool       `json:"crossing"`
	Phase       string     `json:"phase"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
}

// Status is the result of one decision round, served on /data and pushed to stream clients.
type Status struct {
	DecisionID     string           `json:"decision_id"`
	IntersectionID string           `json:"intersection_id"`
	Vehicles       [4]int           `json:"vehicles"`
	Signals        [4]int           `json:"signals"`
	CurrentGreen   *int             `json:"current_green"`
	EmergencyLane  *int             `json:"emergency_lane"`
	Reason         string           `json:"reason"`
	Pedestrian     PedestrianStatus `json:"pedestrian"`
	DecidedAt      time.Time        `json:"decided_at"`
}
