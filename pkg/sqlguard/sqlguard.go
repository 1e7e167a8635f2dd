// Package sqlguard scans SQL text for destructive operations before
// execution. The scan is purely textual and advisory: it feeds a
// confirmation surface, it does not parse SQL and it never blocks
// execution by itself.
package sqlguard

import (
	"regexp"
	"strings"
)

// Severity ranks how much damage an operation can do.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
)

// OperationType identifies a class of destructive statement.
type OperationType string

const (
	OpDropDatabase       OperationType = "drop_database"
	OpDropSchema         OperationType = "drop_schema"
	OpDropTable          OperationType = "drop_table"
	OpDropIndex          OperationType = "drop_index"
	OpDropView           OperationType = "drop_view"
	OpTruncate           OperationType = "truncate"
	OpDeleteWithoutWhere OperationType = "delete_without_where"
	OpAlterTableDrop     OperationType = "alter_table_drop"
)

// DestructiveOperation is a single finding in the analyzed text.
type DestructiveOperation struct {
	Type       OperationType `json:"type"`
	Severity   Severity      `json:"severity"`
	ObjectName string        `json:"object_name,omitempty"`
	Statement  string        `json:"statement"`
}

type rule struct {
	opType   OperationType
	severity Severity
	pattern  *regexp.Regexp
}

var rules = []rule{
	{
		opType:   OpDropDatabase,
		severity: SeverityCritical,
		pattern:  regexp.MustCompile(`(?i)\bDROP\s+DATABASE\s+(?:IF\s+EXISTS\s+)?([^\s;]+)`),
	},
	{
		opType:   OpDropSchema,
		severity: SeverityCritical,
		pattern:  regexp.MustCompile(`(?i)\bDROP\s+SCHEMA\s+(?:IF\s+EXISTS\s+)?([^\s;]+)`),
	},
	{
		opType:   OpDropTable,
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)\bDROP\s+TABLE\s+(?:IF\s+EXISTS\s+)?([^\s;]+)`),
	},
	{
		opType:   OpDropIndex,
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)\bDROP\s+INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+EXISTS\s+)?([^\s;]+)`),
	},
	{
		opType:   OpDropView,
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)\bDROP\s+(?:MATERIALIZED\s+)?VIEW\s+(?:IF\s+EXISTS\s+)?([^\s;]+)`),
	},
	{
		opType:   OpTruncate,
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)\bTRUNCATE\s+(?:TABLE\s+)?(?:ONLY\s+)?([^\s;]+)`),
	},
	{
		opType:   OpAlterTableDrop,
		severity: SeverityHigh,
		pattern:  regexp.MustCompile(`(?i)\bALTER\s+TABLE\s+(?:ONLY\s+)?([^\s;]+)\s+DROP\s+(?:COLUMN|CONSTRAINT)\b(?:\s+IF\s+EXISTS)?(?:\s+([^\s;,]+))?`),
	},
}

var (
	deletePattern = regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+([^\s;]+)`)
	wherePattern  = regexp.MustCompile(`(?i)\bWHERE\b`)

	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// stripComments removes line and block comments so commented-out statements
// are not reported. Comments become a single space to keep token boundaries.
func stripComments(sqlText string) string {
	sqlText = blockComment.ReplaceAllString(sqlText, " ")
	sqlText = lineComment.ReplaceAllString(sqlText, " ")
	return sqlText
}

// Analyze scans sqlText and returns every destructive operation found.
// Matching is case-insensitive and reports all occurrences. The
// DELETE-without-WHERE check is scoped per statement: a WHERE only
// suppresses the finding when it belongs to the same statement.
func Analyze(sqlText string) []DestructiveOperation {
	text := stripComments(sqlText)

	var findings []DestructiveOperation

	for _, r := range rules {
		for _, match := range r.pattern.FindAllStringSubmatch(text, -1) {
			findings = append(findings, DestructiveOperation{
				Type:       r.opType,
				Severity:   r.severity,
				ObjectName: cleanIdentifier(firstCapture(match)),
				Statement:  strings.TrimSpace(match[0]),
			})
		}
	}

	for _, stmt := range strings.Split(text, ";") {
		if wherePattern.MatchString(stmt) {
			continue
		}
		for _, match := range deletePattern.FindAllStringSubmatch(stmt, -1) {
			findings = append(findings, DestructiveOperation{
				Type:       OpDeleteWithoutWhere,
				Severity:   SeverityHigh,
				ObjectName: cleanIdentifier(firstCapture(match)),
				Statement:  strings.TrimSpace(match[0]),
			})
		}
	}

	return findings
}

// HasDestructiveOperations reports whether sqlText contains at least one
// destructive operation.
func HasDestructiveOperations(sqlText string) bool {
	return len(Analyze(sqlText)) > 0
}

// firstCapture returns the first non-empty capture group of a match.
func firstCapture(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

// cleanIdentifier strips quoting and trailing list punctuation from a
// captured identifier.
func cleanIdentifier(name string) string {
	name = strings.TrimRight(name, ",")
	name = strings.Trim(name, "\"'`[]")
	return name
}
