// Package template resolves note templates against a fixed token set. It is
// a pure function: no I/O, no state, so the reconciler's hydration step can
// always run after it to enforce the identity fields a template is allowed
// to omit or misname.
package template

import (
	"regexp"
	"strings"
	"time"
)

// Context carries the token values available to one Resolve call. Only the
// fields relevant to the template's Kind need be populated; unpopulated
// tokens resolve to the empty string, and unknown tokens are left as written.
type Context struct {
	// Task tokens
	Title         string
	Description   string
	DueDate       string
	DueString     string
	DeadlineDate  string
	Priority      string
	PriorityLabel string
	Project       string
	ProjectID     string
	Section       string
	SectionID     string
	TodoistID     string
	URL           string
	Tags          string
	Created       string
	ProjectLink   string
	SectionLink   string
	ParentTaskLink string

	// Project tokens
	ProjectName       string
	ParentProjectLink string

	// Section tokens
	SectionName string
}

var tokenPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Resolve substitutes every `{token}` occurrence in tmpl using ctx and the
// current date, leaving unrecognized tokens untouched.
func Resolve(tmpl string, date time.Time, ctx Context) string {
	tokens := map[string]string{
		"date":                date.Format("2006-01-02"),
		"date_time":           date.Format(time.RFC3339),
		"year":                date.Format("2006"),
		"month":               date.Format("01"),
		"day":                 date.Format("02"),
		"title":               ctx.Title,
		"description":         ctx.Description,
		"due_date":            ctx.DueDate,
		"due_string":          ctx.DueString,
		"deadline_date":       ctx.DeadlineDate,
		"priority":            ctx.Priority,
		"priority_label":      ctx.PriorityLabel,
		"project":             ctx.Project,
		"project_id":          ctx.ProjectID,
		"section":             ctx.Section,
		"section_id":          ctx.SectionID,
		"todoist_id":          ctx.TodoistID,
		"url":                 ctx.URL,
		"tags":                ctx.Tags,
		"created":             ctx.Created,
		"project_link":        ctx.ProjectLink,
		"section_link":        ctx.SectionLink,
		"parent_task_link":    ctx.ParentTaskLink,
		"project_name":        ctx.ProjectName,
		"parent_project_link": ctx.ParentProjectLink,
		"section_name":        ctx.SectionName,
	}

	return tokenPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.Trim(m, "{}")
		if v, ok := tokens[key]; ok {
			return v
		}
		return m
	})
}
