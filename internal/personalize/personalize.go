// Package personalize renders message templates against a target's profile
// attributes. The placeholder set is fixed; unknown attributes never fail a
// render, they fall back to a safe default.
package personalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/unclebandit/dmcampaign-backend/internal/model"
)

// MaxTemplateLength leaves headroom for substitution growth under the
// channel's 10k character message limit.
const MaxTemplateLength = 9000

var supportedPlaceholders = []string{
	"{name}",
	"{username}",
	"{display_name}",
	"{follower_count}",
	"{following_count}",
}

var placeholderRe = regexp.MustCompile(`\{[^}]+\}`)

// Render substitutes the recognized placeholders with the target's
// attributes. Missing display names fall back to the username, missing
// counts to "0". Render is pure: same template + target, same output.
func Render(template string, t *model.Target) string {
	if template == "" {
		return ""
	}

	name := t.DisplayName
	if name == "" {
		name = t.Username
	}

	msg := template
	msg = strings.ReplaceAll(msg, "{name}", name)
	msg = strings.ReplaceAll(msg, "{username}", t.Username)
	msg = strings.ReplaceAll(msg, "{display_name}", name)
	msg = strings.ReplaceAll(msg, "{follower_count}", strconv.Itoa(t.FollowerCount))
	msg = strings.ReplaceAll(msg, "{following_count}", strconv.Itoa(t.FollowingCount))
	return msg
}

// Validate checks a template before a campaign may be activated: non-empty,
// only recognized placeholders, and within the length cap. It returns every
// problem found, not just the first.
func Validate(template string) (bool, []string) {
	if strings.TrimSpace(template) == "" {
		return false, []string{"template cannot be empty"}
	}

	var problems []string
	for _, v := range placeholderRe.FindAllString(template, -1) {
		if !supported(v) {
			problems = append(problems, fmt.Sprintf("unsupported placeholder: %s", v))
		}
	}
	if len(template) > MaxTemplateLength {
		problems = append(problems, fmt.Sprintf("template too long (max %d characters)", MaxTemplateLength))
	}
	return len(problems) == 0, problems
}

func supported(placeholder string) bool {
	for _, s := range supportedPlaceholders {
		if s == placeholder {
			return true
		}
	}
	return false
}
