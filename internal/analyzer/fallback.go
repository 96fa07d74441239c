package analyzer

import (
	"fmt"
	"strings"

	"worklog-summary/internal/storage"
)

// MockSummary builds placeholder content from record fields without any network call.
func MockSummary(records []*storage.Record) string {
	var projects []string
	seen := make(map[string]bool)
	for _, r := range records {
		if r.Project != "" && !seen[r.Project] {
			seen[r.Project] = true
			projects = append(projects, r.Project)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mock Summary for %d logs.\n\n", len(records))
	b.WriteString("### Impact\n")
	if len(projects) > 0 {
		fmt.Fprintf(&b, "- Demonstrated progress on %s.\n", strings.Join(projects, ", "))
	} else {
		b.WriteString("- No project activity recorded.\n")
	}
	b.WriteString("\n### Key Tasks\n")
	for _, r := range records {
		if r.Task == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", r.Task)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DegradedSummary echoes the raw records under a quota banner.
func DegradedSummary(records []*storage.Record, provider string) string {
	var b strings.Builder
	b.WriteString("# AI Report Generation Unavailable\n\n")
	fmt.Fprintf(&b, "**API quota exceeded.** Please check your %s account billing and quota limits.\n\n", providerTitle(provider))
	fmt.Fprintf(&b, "## Summary of Logs (%d entries)\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "### %s\n", r.Date.UTC().Format("2006-01-02"))
		fmt.Fprintf(&b, "**Project:** %s\n", valueOr(r.Project, "-"))
		fmt.Fprintf(&b, "**Task:** %s\n", valueOr(r.Task, "-"))
		fmt.Fprintf(&b, "**Status:** %s\n\n", r.Status)
	}
	b.WriteString("*To enable AI-powered reports, please add credits to your account or wait for your quota to reset.*")
	return b.String()
}

func providerTitle(name string) string {
	switch name {
	case "gemini":
		return "Gemini"
	case "groq":
		return "Groq"
	case "":
		return "AI provider"
	default:
		return name
	}
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
