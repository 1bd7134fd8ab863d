package auth

// Known OAuth scopes used by the planner backend.
const (
	ScopeScheduleWrite = "schedule:write"
	ScopeScheduleRead  = "schedule:read"
)
