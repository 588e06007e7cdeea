package dto

// OverviewDTO summarizes live tasks. Both breakdowns always carry every enum key.
type OverviewDTO struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
	Overdue    int64            `json:"overdue"`
}

// PerformanceDTO is one assignee's completion record. AvgCompletionTime is in hours.
type PerformanceDTO struct {
	UserID            string  `json:"user_id"`
	UserName          string  `json:"user_name"`
	CompletedTasks    int64   `json:"completed_tasks"`
	AvgCompletionTime float64 `json:"avg_completion_time"`
}

// TrendDTO counts tasks created and completed on one UTC day.
type TrendDTO struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}
