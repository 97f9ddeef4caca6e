package ir

// Version stamps attached to every Plan Preview.
const (
	// ClassifierVersion identifies the line item classification rules.
	ClassifierVersion = "classifier-v1"

	// PlannerVersion identifies the rule-driven group planner.
	PlannerVersion = "planner-rules-v1"
)
