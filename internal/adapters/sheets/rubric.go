package sheets

import "strings"

const machinePrefix = "AI:"

// DecodeRubric splits a grading prompt cell into human guidance and the
// machine-authored rubric. The rubric starts at the first line beginning
// with "AI:"; a cell without one holds guidance only.
func DecodeRubric(cell string) (guidance, rubric string, machine bool) {
	lines := strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, machinePrefix) {
			continue
		}
		rest := append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, machinePrefix))}, lines[i+1:]...)
		return strings.TrimSpace(strings.Join(lines[:i], "\n")),
			strings.TrimSpace(strings.Join(rest, "\n")),
			true
	}
	return strings.TrimSpace(cell), "", false
}

// EncodeRubric is the inverse of DecodeRubric.
func EncodeRubric(guidance, rubric string) string {
	guidance = strings.TrimSpace(guidance)
	line := machinePrefix + " " + strings.TrimSpace(rubric)
	if guidance == "" {
		return line
	}
	return guidance + "\n" + line
}
