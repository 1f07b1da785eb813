package models

import "time"

// DoubtContextType tags the entity a doubt refers to.
type DoubtContextType string

const (
	DoubtContextAssignment DoubtContextType = "ASSIGNMENT"
	DoubtContextResource   DoubtContextType = "RESOURCE"
)

// Valid reports whether the context type is one of the known values.
func (t DoubtContextType) Valid() bool {
	return t == DoubtContextAssignment || t == DoubtContextResource
}

// DoubtContext is the tagged reference to the assignment or resource the
// question is about. The owning teacher and display title are resolved from
// the referenced entity when the doubt is created.
type DoubtContext struct {
	Type DoubtContextType `db:"context_type" json:"type"`
	ID   string           `db:"context_id" json:"id"`
}

// Doubt is a single-turn question thread between a student and the teacher
// who owns the referenced content. The teacher replies once by setting
// Answer.
type Doubt struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	StudentName  string           `db:"student_name" json:"student_name,omitempty"`
	TeacherID    string           `db:"teacher_id" json:"teacher_id"`
	TeacherName  string           `db:"teacher_name" json:"teacher_name,omitempty"`
	ContextType  DoubtContextType `db:"context_type" json:"context_type"`
	ContextID    string           `db:"context_id" json:"context_id"`
	ContextTitle string           `db:"context_title" json:"context_title"`
	Subject      string           `db:"subject" json:"subject"`
	Question     string           `db:"question" json:"question"`
	Answer       *string          `db:"answer" json:"answer,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	AnsweredAt   *time.Time       `db:"answered_at" json:"answered_at,omitempty"`
}

// Answered reports whether the owning teacher has replied.
func (d *Doubt) Answered() bool {
	return d.Answer != nil && *d.Answer != ""
}
