package service

import (
	"strings"

	"github.com/noah-isme/momentum-lms-api/internal/models"
)

// TagMatchPolicy selects how content tags are compared against a student's
// access tags.
type TagMatchPolicy string

const (
	// MatchAll requires every non-blank content tag to be present in the
	// student's access tags.
	MatchAll TagMatchPolicy = "all"
	// MatchAny requires at least one content tag to be present.
	MatchAny TagMatchPolicy = "any"
)

// ParseTagMatchPolicy maps a config string to a policy, defaulting to
// MatchAll for anything unrecognised.
func ParseTagMatchPolicy(s string) TagMatchPolicy {
	if strings.EqualFold(s, string(MatchAny)) {
		return MatchAny
	}
	return MatchAll
}

// AccessItem is the contract content must satisfy to be gated by the tag
// policy.
type AccessItem interface {
	ContentTags() []string
	Published() bool
}

// AccessEvaluator decides whether a principal may view a piece of content.
// Teachers and admins bypass the tag check entirely; students see an item
// only when it is published and the tag policy matches. A user with no
// access tags sees nothing.
type AccessEvaluator struct {
	policy TagMatchPolicy
}

// NewAccessEvaluator constructs an AccessEvaluator with the given policy.
func NewAccessEvaluator(policy TagMatchPolicy) *AccessEvaluator {
	if policy != MatchAny {
		policy = MatchAll
	}
	return &AccessEvaluator{policy: policy}
}

// CanView reports whether the user may see the item.
func (e *AccessEvaluator) CanView(user *models.User, item AccessItem) bool {
	if user == nil || item == nil {
		return false
	}
	if user.Role == models.RoleAdmin || user.Role == models.RoleTeacher {
		return true
	}
	if !item.Published() {
		return false
	}
	return e.MatchTags(user.AccessTags, item.ContentTags())
}

// MatchTags applies the configured policy. Blank content tags are skipped so
// an unset dimension never blocks (or unlocks) an item on its own; an item
// whose tags are all blank matches no one.
func (e *AccessEvaluator) MatchTags(accessTags []string, contentTags []string) bool {
	if len(accessTags) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(accessTags))
	for _, tag := range accessTags {
		set[tag] = struct{}{}
	}

	matched := 0
	considered := 0
	for _, tag := range contentTags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		considered++
		if _, ok := set[tag]; ok {
			matched++
		}
	}
	if considered == 0 {
		return false
	}
	if e.policy == MatchAny {
		return matched > 0
	}
	return matched == considered
}
