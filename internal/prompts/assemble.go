package prompts

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

const reportFile = "report.json"

// fallbackSystem is used when the library cannot supply the report system prompt
const fallbackSystem = "Return ONLY one JSON object describing the sales session, satisfying this JSON Schema:\n{{.Schema}}"

// fallbackUser is used when the library cannot supply the report user prompt
const fallbackUser = "Session: {{.Title}}\nClient: {{.ClientName}}{{.ClientCompany}}\nSales rep: {{.RepName}}\n\nTranscript:\n{{.Transcript}}"

// Prompt is the pair of instructions sent to the generator
type Prompt struct {
	System string
	User   string
}

// Assembler builds generator prompts from a session and its transcript
type Assembler struct {
	library  *Library
	contract *contract.Contract
}

// NewAssembler creates an assembler. A nil library uses the embedded prompts; a nil
// contract uses the session report contract.
func NewAssembler(library *Library, c *contract.Contract) *Assembler {
	if library == nil {
		library = Embedded()
	}
	if c == nil {
		c = contract.Report()
	}
	return &Assembler{library: library, contract: c}
}

// Assemble renders the system and user prompts. It never fails: missing values are
// rendered as "not provided" and an unreadable template falls back to a built-in one.
func (a *Assembler) Assemble(session *types.Session, segments []types.TranscriptSegment, insights []types.Insight) Prompt {
	system := a.template("report-system", fallbackSystem)
	user := a.template("report-user", fallbackUser)

	return Prompt{
		System: Format(system, a.systemData()),
		User:   Format(user, userData(session, segments, insights)),
	}
}

func (a *Assembler) template(key, fallback string) string {
	tmpl, err := a.library.Get(reportFile, key)
	if err != nil {
		log.Printf("[prompts] using built-in %s prompt: %v", key, err)
		return fallback
	}
	return tmpl
}

func (a *Assembler) systemData() map[string]string {
	return map[string]string{
		"SummaryChars":  strconv.Itoa(a.minChars("p1_executive_summary")),
		"KeyPointChars": strconv.Itoa(a.minChars("p1_key_points")),
		"NextStepChars": strconv.Itoa(a.minChars("p6_next_steps")),
		"EmailChars":    strconv.Itoa(a.minChars("p6_follow_up_email")),
		"StageCount":    strconv.Itoa(len(contract.Stages)),
		"Stages":        strings.Join(contract.Stages, ", "),
		"Schema":        a.contract.JSONSchemaString(),
	}
}

func (a *Assembler) minChars(path string) int {
	f, ok := a.contract.Lookup(path)
	if !ok {
		return 0
	}
	return f.MinChars
}

func userData(session *types.Session, segments []types.TranscriptSegment, insights []types.Insight) map[string]string {
	if session == nil {
		session = &types.Session{}
	}

	company := ""
	if session.ClientCompany != "" {
		company = " (" + session.ClientCompany + ")"
	}
	date := ""
	if !session.StartedAt.IsZero() {
		date = session.StartedAt.Format("2006-01-02")
	}

	return map[string]string{
		"Title":         orNotProvided(session.Title),
		"ClientName":    orNotProvided(session.ClientName),
		"ClientCompany": company,
		"RepName":       orNotProvided(session.RepName),
		"SessionDate":   orNotProvided(date),
		"Duration":      orNotProvided(types.FormatDuration(session.DurationSeconds)),
		"Channel":       orNotProvided(session.Channel),
		"Notes":         orNotProvided(session.Notes),
		"Insights":      formatInsights(insights),
		"SegmentCount":  strconv.Itoa(len(segments)),
		"Transcript":    FormatTranscript(segments),
	}
}

// FormatTranscript renders segments as "[HH:MM:SS] Speaker: text" lines, in the given order
func FormatTranscript(segments []types.TranscriptSegment) string {
	if len(segments) == 0 {
		return "not provided"
	}
	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteByte('\n')
		}
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = "Unknown"
		}
		fmt.Fprintf(&sb, "[%s] %s: %s", types.FormatOffset(seg.Offset), speaker, strings.TrimSpace(seg.Text))
	}
	return sb.String()
}

func formatInsights(insights []types.Insight) string {
	var lines []string
	for _, in := range insights {
		content := strings.TrimSpace(in.Content)
		if content == "" {
			continue
		}
		kind := strings.TrimSpace(in.Kind)
		if kind == "" {
			kind = "note"
		}
		lines = append(lines, "- "+kind+": "+content)
	}
	if len(lines) == 0 {
		return "none"
	}
	return strings.Join(lines, "\n")
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}
