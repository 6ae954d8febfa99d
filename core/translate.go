package core

import (
	"fmt"

	"github.com/konradmalik/htmllint-ls/engine"
	"github.com/konradmalik/htmllint-ls/types"
)

// IssueCode is an engine issue code with a dedicated message.
type IssueCode string

const (
	CodeBannedAttribute    IssueCode = "E001"
	CodeDuplicateAttribute IssueCode = "E003"
	CodeAttributeFormat    IssueCode = "E011"
	CodeIndentation        IssueCode = "E036"
	CodeAttributesPerLine  IssueCode = "E037"
)

// RenderMessage returns the text shown to the user for an issue.
func RenderMessage(issue types.Issue) string {
	d := issue.Data
	switch IssueCode(issue.Code) {
	case CodeBannedAttribute:
		return fmt.Sprintf(`The attribute "%s" is banned`, d.Attribute)
	case CodeDuplicateAttribute:
		return fmt.Sprintf(`The attribute "%s" is duplicated`, d.Attribute)
	case CodeAttributeFormat:
		return fmt.Sprintf(`Value "%s" of attribute "%s" does not respect the format '%s'`, d.Value, d.Attribute, d.Format)
	case CodeIndentation:
		return fmt.Sprintf("Wrong indentation, expected indentation of %d", d.Width)
	case CodeAttributesPerLine:
		return fmt.Sprintf("Only %d attributes per line are permitted", d.Limit)
	default:
		if issue.Msg != "" {
			return issue.Msg
		}
		return engine.RenderIssue(issue)
	}
}

// Translate maps engine issues to diagnostics, one per issue, in order.
func Translate(issues []types.Issue, settings types.Settings) []types.Diagnostic {
	diagnostics := make([]types.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		diagnostics = append(diagnostics, issueToDiagnostic(issue, settings))
	}
	return diagnostics
}

// Engine lines are shifted by one. In character mode the reported column is highlighted,
// in line mode the whole line is.
func issueToDiagnostic(issue types.Issue, settings types.Settings) types.Diagnostic {
	line := max(issue.Line+1-settings.LintOffset, 0)

	var rng types.Range
	switch settings.RangeMode {
	case types.RangeLine:
		rng = types.Range{
			Start: types.Position{Line: line, Character: 0},
			End:   types.Position{Line: line + 1, Character: 0},
		}
	default:
		col := max(issue.Column, 0)
		rng = types.Range{
			Start: types.Position{Line: line, Character: col},
			End:   types.Position{Line: line, Character: col + 1},
		}
	}

	code := issue.Rule
	if code == "" {
		code = issue.Code
	}

	// TODO: map engine severities once the engine reports them
	diagnostic := types.Diagnostic{
		Range:    rng,
		Severity: types.DiagError,
		Source:   strPtr(types.Source),
		Message:  RenderMessage(issue),
	}
	if code != "" {
		diagnostic.Code = &code
	}
	return diagnostic
}
