package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reviewdog/errorformat"

	"github.com/konradmalik/htmllint-ls/logs"
	"github.com/konradmalik/htmllint-ls/types"
)

const (
	inputPlaceholder   = "${INPUT}"
	fileextPlaceholder = "${FILEEXT}"
	configPlaceholder  = "${CONFIG}"
	rootPlaceholder    = "${ROOT}"

	// FormatJSON makes the command engine decode stdout as a JSON array of issues.
	FormatJSON = "json"
	// HtmllintCLIFormat matches the output of the htmllint command line tool.
	HtmllintCLIFormat = "%f: line %l, col %c, %m"
)

var unknownExitCode = -999

// Command runs an external linter. The document is passed on stdin and the
// resolved configuration is written to a temporary file substituted for ${CONFIG}.
// ${INPUT} is the document path, ${FILEEXT} its extension and ${ROOT} the
// directory the command runs in.
type Command struct {
	Command string
	// either FormatJSON or errorformat patterns
	Formats []string
	Env     []string
}

func NewCommand(command string, formats []string) *Command {
	return &Command{Command: command, Formats: formats}
}

func (c *Command) isJSON() bool {
	return len(c.Formats) == 0 || (len(c.Formats) == 1 && c.Formats[0] == FormatJSON)
}

func (c *Command) Lint(ctx context.Context, doc Document, config types.LintConfig) ([]types.Issue, error) {
	cmdStr := c.Command
	if strings.Contains(cmdStr, configPlaceholder) {
		configPath, cleanup, err := writeTempConfig(config)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		cmdStr = strings.ReplaceAll(cmdStr, configPlaceholder, escapeBrackets(configPath))
	}
	dir := workingDir(doc)
	cmdStr = replaceMagicStrings(cmdStr, doc.Path, dir)

	cmd := buildExecCmd(ctx, cmdStr, dir, doc.Text, c.Env)
	out, err := runLintCommand(cmd)
	logs.Log.Logln(logs.Info, cmdStr)
	logs.Log.Logln(logs.Debug, string(out))
	if err != nil {
		return nil, err
	}

	if c.isJSON() {
		return parseJSONIssues(out)
	}
	return parseErrorformatIssues(out, c.Formats)
}

// workingDir is the workspace root, or the document's directory outside of a workspace.
func workingDir(doc Document) string {
	if doc.Root != "" {
		return doc.Root
	}
	if doc.Path != "" {
		return filepath.Dir(filepath.FromSlash(doc.Path))
	}
	return ""
}

func replaceMagicStrings(command, fname, rootPath string) string {
	ext := filepath.Ext(fname)
	ext = strings.TrimPrefix(ext, ".")

	command = strings.ReplaceAll(command, inputPlaceholder, escapeBrackets(filepath.FromSlash(fname)))
	command = strings.ReplaceAll(command, fileextPlaceholder, ext)
	command = strings.ReplaceAll(command, rootPlaceholder, escapeBrackets(rootPath))

	return command
}

func writeTempConfig(config types.LintConfig) (string, func(), error) {
	if config == nil {
		config = types.LintConfig{}
	}
	b, err := json.Marshal(config)
	if err != nil {
		return "", nil, fmt.Errorf("cannot encode config: %w", err)
	}

	f, err := os.CreateTemp("", "htmllintrc-*.json")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func buildExecCmd(ctx context.Context, command, dir string, text string, env []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, shell, shellFlag, command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(text)
	makeCmdKillable(cmd)

	return cmd
}

// runLintCommand treats positive exit codes as "issues found", linters exit non-zero when they report anything.
func runLintCommand(cmd *exec.Cmd) ([]byte, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	code := parseErrorExitCode(err)
	if code == unknownExitCode {
		return nil, fmt.Errorf("%s: %w", strings.Join(cmd.Args, " "), err)
	}

	if code < 0 {
		// In go, anything < 0 means some interrupt (canceled, killed etc.)
		return nil, nil
	}

	if len(out) == 0 && stderr.Len() > 0 {
		return nil, fmt.Errorf("%s: exit code %d: %s", strings.Join(cmd.Args, " "), code, strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

func parseErrorExitCode(err error) int {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return unknownExitCode
	}
	return exitErr.ExitCode()
}

func parseJSONIssues(out []byte) ([]types.Issue, error) {
	issues := make([]types.Issue, 0)
	if len(bytes.TrimSpace(out)) == 0 {
		return issues, nil
	}
	if err := json.Unmarshal(out, &issues); err != nil {
		return nil, fmt.Errorf("invalid linter output: %w", err)
	}
	return issues, nil
}

func parseErrorformatIssues(out []byte, formats []string) ([]types.Issue, error) {
	efms, err := errorformat.NewErrorformat(formats)
	if err != nil {
		return nil, fmt.Errorf("invalid error-format: %v", formats)
	}

	issues := make([]types.Issue, 0)
	s := efms.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		entry := s.Entry()
		if !entry.Valid {
			continue
		}
		issues = append(issues, entryToIssue(entry))
	}
	return issues, nil
}

// command line linters report 1-based positions, issues are 0-based
func entryToIssue(entry *errorformat.Entry) types.Issue {
	issue := types.Issue{
		Line:   max(entry.Lnum-1, 0),
		Column: max(entry.Col-1, 0),
		Msg:    strings.TrimSpace(entry.Text),
	}
	if entry.Nr != 0 {
		issue.Code = fmt.Sprintf("E%03d", entry.Nr)
	}
	return issue
}

func escapeBrackets(path string) string {
	path = strings.ReplaceAll(path, "(", `\(`)
	path = strings.ReplaceAll(path, ")", `\)`)

	return path
}
