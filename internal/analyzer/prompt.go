package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"worklog-summary/internal/period"
	"worklog-summary/internal/storage"
)

// promptRecord is the subset of a record sent to the model.
type promptRecord struct {
	Date         string   `json:"date"`
	Project      string   `json:"project,omitempty"`
	Task         string   `json:"task,omitempty"`
	WorkDone     []string `json:"workDone,omitempty"`
	FilesTouched []string `json:"filesTouched,omitempty"`
	TechStack    []string `json:"techStack,omitempty"`
	Blockers     string   `json:"blockers,omitempty"`
	Learnings    []string `json:"learnings,omitempty"`
	Impact       []string `json:"impact,omitempty"`
	NextPlan     string   `json:"nextPlan,omitempty"`
	Hours        float64  `json:"hours,omitempty"`
}

// FilterAvailable keeps the records that carry work details.
func FilterAvailable(records []*storage.Record) []*storage.Record {
	available := make([]*storage.Record, 0, len(records))
	for _, r := range records {
		if r.Status == storage.StatusAvailable {
			available = append(available, r)
		}
	}
	return available
}

func serializeRecords(records []*storage.Record, indent bool) string {
	items := make([]promptRecord, 0, len(records))
	for _, r := range records {
		items = append(items, promptRecord{
			Date:         r.Date.UTC().Format("Monday, Jan 2, 2006"),
			Project:      r.Project,
			Task:         r.Task,
			WorkDone:     r.WorkDone,
			FilesTouched: r.FilesTouched,
			TechStack:    r.TechStack,
			Blockers:     r.Blockers,
			Learnings:    r.Learnings,
			Impact:       r.Impact,
			NextPlan:     r.NextPlan,
			Hours:        r.Hours,
		})
	}

	var data []byte
	if indent {
		data, _ = json.MarshalIndent(items, "", "  ")
	} else {
		data, _ = json.Marshal(items)
	}
	return string(data)
}

// BuildPrompt selects the template for the period type.
func BuildPrompt(p period.Period, records []*storage.Record) string {
	switch p.Type {
	case period.Weekly:
		return weeklyPrompt(p, records)
	case period.Monthly:
		return monthlyPrompt(p, records)
	default:
		return customPrompt(p, records)
	}
}

func weeklyPrompt(p period.Period, records []*storage.Record) string {
	var b strings.Builder
	b.WriteString("You are drafting a professional Internship Weekly Report in a specific format.\n")
	fmt.Fprintf(&b, "Period: %s - %s (ISO week %d of %d)\n\n", p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"), p.Index, p.Year)
	b.WriteString("Logs (JSON data):\n")
	b.WriteString(serializeRecords(records, true))
	b.WriteString("\n\nGenerate the report EXACTLY in this format. Use the data from the logs to fill in each section:\n\n")
	fmt.Fprintf(&b, "Week (%s – %s)\n\n", p.Start.Format("02/01/06"), p.End.Format("02/01/06"))
	b.WriteString(`Key Contribution:
[2-3 sentences summarizing the main achievements and impact across all the work done this week]

Development Work:
[Numbered points per major task or project: what was built, key functionality, technical decisions]

New Tools/Concept:
- [New technologies, tools, libraries, patterns or concepts learned]

Challenges & Resolution:
Challenge: [A technical problem or obstacle faced]
Resolution: [How it was solved]

Feedback/Observation:
- [Feedback received or notable observations]

Plan For next Week:
[What is planned for the coming week]

Any other:
[Optional notes or pending items]
`)
	return b.String()
}

func monthlyPrompt(p period.Period, records []*storage.Record) string {
	monthName := p.Start.Format("Jan 2006")

	var b strings.Builder
	b.WriteString("You are drafting a professional Internship Monthly Report in a specific format.\n")
	fmt.Fprintf(&b, "Month: %s (%s - %s)\n\n", monthName, p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"))
	b.WriteString("Logs (JSON data):\n")
	b.WriteString(serializeRecords(records, true))
	b.WriteString("\n\nGenerate the report EXACTLY in this format:\n\n")
	fmt.Fprintf(&b, "Month: %s\n\n", monthName)
	b.WriteString(`Project Worked On:
[Unique project names worked on during this month]

Major Contributions:
[High-level impact and key achievements across all projects]

Tech Stack:
- Frontend: [list]
- Backend: [list]
- Tools: [list]

Key Learnings:
- [Consolidated learnings, concepts, practices and problem-solving approaches]

Areas to Improve:
- [1-2 areas for improvement based on the challenges faced]

Overall Summary:
[2-3 sentences on the month's work, growth and progress]
`)
	return b.String()
}

func customPrompt(p period.Period, records []*storage.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following work logs from %s to %s and generate a professional summary.\n",
		p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"))
	fmt.Fprintf(&b, "Logs: %s\n", serializeRecords(records, false))
	b.WriteString("Output format: Executive Summary, Key Achievements, Skills Used.\n")
	return b.String()
}

// CritiquePrompt asks for a mentor-style review of recent records.
func CritiquePrompt(records []*storage.Record) string {
	return `You are a senior engineering manager and mentor.
Analyze the following work logs from an intern/junior developer.
Provide honest, constructive criticism and a concrete plan for improvement. Be direct but encouraging.

Logs:
` + serializeRecords(records, false) + `

Output Format (Markdown):

# Self-Improvement Review

## Constructive Criticism
[2-3 weak points or habits visible in the logs]

## Actionable Tips
[3 specific tips to improve the quality of work or logging]

## Growth Challenge
[One technical or soft-skill challenge for the next 2 days]

## Motivation
[One short sentence to boost morale]
`
}

// InsightPrompt asks for a short daily productivity tip.
func InsightPrompt(records []*storage.Record) string {
	return `You are a productivity coach for a software engineer.
Based on their recent work logs, provide a brief, actionable "Daily Insight" or "Productivity Tip".
Keep it friendly, motivating, and under 50 words.

Logs:
` + serializeRecords(records, false) + `

Format:
**Tip:** [Your tip here]
**Challenge:** [A small challenge for today]
`
}
