package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

func TestParseTagMatchPolicy(t *testing.T) {
	assert.Equal(t, MatchAny, ParseTagMatchPolicy("any"))
	assert.Equal(t, MatchAny, ParseTagMatchPolicy("ANY"))
	assert.Equal(t, MatchAll, ParseTagMatchPolicy("all"))
	assert.Equal(t, MatchAll, ParseTagMatchPolicy(""))
	assert.Equal(t, MatchAll, ParseTagMatchPolicy("bogus"))
}

func TestMatchTagsAllPolicy(t *testing.T) {
	e := NewAccessEvaluator(MatchAll)

	assert.True(t, e.MatchTags([]string{"11", "Physics", "JEE"}, []string{"11", "Physics", "JEE"}))
	assert.False(t, e.MatchTags([]string{"11", "Physics"}, []string{"11", "Physics", "JEE"}))

	// Blank content dimensions are skipped, not required.
	assert.True(t, e.MatchTags([]string{"11", "Physics"}, []string{"11", "Physics", ""}))
	assert.True(t, e.MatchTags([]string{"11"}, []string{"11", "  ", ""}))

	// An item with only blank tags matches no one.
	assert.False(t, e.MatchTags([]string{"11", "Physics"}, []string{"", " ", ""}))

	// No access tags means no access.
	assert.False(t, e.MatchTags(nil, []string{"11"}))
	assert.False(t, e.MatchTags([]string{}, []string{"11"}))
}

func TestMatchTagsAnyPolicy(t *testing.T) {
	e := NewAccessEvaluator(MatchAny)

	assert.True(t, e.MatchTags([]string{"11"}, []string{"11", "Physics", "JEE"}))
	assert.False(t, e.MatchTags([]string{"12", "Biology"}, []string{"11", "Physics", "JEE"}))
	assert.False(t, e.MatchTags([]string{"11"}, []string{"", ""}))
	assert.False(t, e.MatchTags(nil, []string{"11"}))
}

func TestCanViewRoleBypass(t *testing.T) {
	e := NewAccessEvaluator(MatchAll)
	item := &models.Assignment{TargetClass: "11", Subject: "Physics", TargetExam: "JEE", IsPublished: false}

	teacher := &models.User{ID: "t1", Role: models.RoleTeacher}
	admin := &models.User{ID: "a1", Role: models.RoleAdmin}
	assert.True(t, e.CanView(teacher, item))
	assert.True(t, e.CanView(admin, item))
}

func TestCanViewStudentGating(t *testing.T) {
	e := NewAccessEvaluator(MatchAll)
	student := &models.User{ID: "s1", Role: models.RoleStudent, AccessTags: []string{"11", "Physics", "JEE"}}

	draft := &models.Assignment{TargetClass: "11", Subject: "Physics", TargetExam: "JEE", IsPublished: false}
	assert.False(t, e.CanView(student, draft))

	published := &models.Assignment{TargetClass: "11", Subject: "Physics", TargetExam: "JEE", IsPublished: true}
	assert.True(t, e.CanView(student, published))

	otherCohort := &models.Assignment{TargetClass: "12", Subject: "Physics", TargetExam: "JEE", IsPublished: true}
	assert.False(t, e.CanView(student, otherCohort))

	untagged := &models.User{ID: "s2", Role: models.RoleStudent}
	assert.False(t, e.CanView(untagged, published))

	assert.False(t, e.CanView(nil, published))
	assert.False(t, e.CanView(student, nil))
}
