package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"csvclean/internal/plan"
	"csvclean/internal/profile"
)

// DefaultFilename is used in prompts when the profile carries no filename.
const DefaultFilename = "uploaded.csv"

// SystemPrompt sets the planner's rules.
const SystemPrompt = `You are a careful data cleaning planner.

Your job:
- Read a dataset profile (columns, missingness, inferred types and example rows)
- Propose a cleaning plan that is SAFE and EXECUTABLE
- Output ONLY valid JSON that matches the provided schema

Rules:
- Do not invent columns that do not exist.
- Keep the plan minimal: only include actions that are clearly useful.
- If something is ambiguous, choose the conservative option (or skip it).
- Avoid irreversible steps unless strongly justified. Drop columns only when
  they are obviously empty or junk.
- Order actions sensibly: rename, trim and null handling first, then
  parsing, then deduplication.
- Keep validations reasonable and not overly strict.`

// Prompt is a system/user message pair.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the planning prompt for p.
func BuildPrompt(p *profile.Profile) (Prompt, error) {
	name := p.Filename
	if name == "" {
		name = DefaultFilename
	}

	sections := []struct {
		title string
		value any
	}{
		{"COLUMNS", p.Columns},
		{"INFERRED TYPES", p.InferredTypes},
		{"MISSINGNESS (per column)", p.MissingByColumn},
		{fmt.Sprintf("PREVIEW ROWS (first %d rows)", len(p.PreviewRows)), p.PreviewRows},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "FILENAME: %s\n", name)
	fmt.Fprintf(&b, "SHAPE: %d rows x %d columns\n", p.Shape.Rows, p.Shape.Columns)
	for _, s := range sections {
		body, err := json.MarshalIndent(s.value, "", "  ")
		if err != nil {
			return Prompt{}, fmt.Errorf("render %s: %w", strings.ToLower(s.title), err)
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", s.title, body)
	}
	fmt.Fprintf(&b, "\nCreate a cleaning plan in JSON that matches this schema exactly:\n\n%s\n\n", plan.Schema())
	b.WriteString("Return ONLY the JSON object. No markdown. No commentary.")

	return Prompt{System: SystemPrompt, User: b.String()}, nil
}
