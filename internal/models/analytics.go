package models

import "time"

// GradedResult is one graded submission joined with its assignment, the
// input row for performance aggregation.
type GradedResult struct {
	AssignmentID    string    `db:"assignment_id" json:"assignment_id"`
	AssignmentTitle string    `db:"assignment_title" json:"assignment_title"`
	Subject         string    `db:"subject" json:"subject"`
	Grade           string    `db:"grade" json:"grade"`
	SubmittedAt     time.Time `db:"submitted_at" json:"submitted_at"`
}

// SubjectPerformance is the per-subject average for one student.
type SubjectPerformance struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"`
	Graded  int     `json:"graded"`
}

// PerformanceSummary aggregates a student's graded work.
type PerformanceSummary struct {
	StudentID      string               `json:"student_id"`
	StudentName    string               `json:"student_name"`
	Graded         int                  `json:"graded"`
	OverallAverage float64              `json:"overall_average"`
	Subjects       []SubjectPerformance `json:"subjects"`
	Results        []GradedResult       `json:"results"`
}

// GradedStanding is one graded submission with its owner, the input row
// for an assignment leaderboard.
type GradedStanding struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	Grade       string `db:"grade" json:"grade"`
}

// LeaderboardEntry is one ranked row of an assignment leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	Percentage  float64 `json:"percentage"`
	Grade       string  `json:"grade"`
}

// Leaderboard ranks graded submissions for one assignment. Self is set when
// the caller appears in the full ranking, whether or not they made the top
// slice.
type Leaderboard struct {
	AssignmentID    string             `json:"assignment_id"`
	AssignmentTitle string             `json:"assignment_title"`
	Graded          int                `json:"graded"`
	Entries         []LeaderboardEntry `json:"entries"`
	Self            *LeaderboardEntry  `json:"self,omitempty"`
}

// AnalyticsSystemMetrics is a point-in-time snapshot of runtime metrics
// exposed on the analytics surface.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// ResourceStat is one row of the top-downloads table on the admin dashboard.
type ResourceStat struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Downloads int64  `json:"downloads"`
}

// DashboardStats aggregates the admin dashboard counters.
type DashboardStats struct {
	TotalStudents       int64            `json:"total_students"`
	TotalTeachers       int64            `json:"total_teachers"`
	TotalResources      int64            `json:"total_resources"`
	TotalDownloads      int64            `json:"total_downloads"`
	ProgramDistribution map[string]int64 `json:"program_distribution"`
	RegistrationTrends  map[string]int64 `json:"registration_trends"`
	TopResources        []ResourceStat   `json:"top_resources"`
}
