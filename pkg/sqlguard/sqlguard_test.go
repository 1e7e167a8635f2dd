package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSingleFinding(t *testing.T) {
	tests := []struct {
		name           string
		sql            string
		expectedType   OperationType
		expectedSev    Severity
		expectedObject string
	}{
		{
			name:           "drop table",
			sql:            "DROP TABLE users;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "drop table if exists",
			sql:            "DROP TABLE IF EXISTS users;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "drop database",
			sql:            "DROP DATABASE prod;",
			expectedType:   OpDropDatabase,
			expectedSev:    SeverityCritical,
			expectedObject: "prod",
		},
		{
			name:           "drop schema cascade",
			sql:            "DROP SCHEMA analytics CASCADE;",
			expectedType:   OpDropSchema,
			expectedSev:    SeverityCritical,
			expectedObject: "analytics",
		},
		{
			name:           "drop index concurrently",
			sql:            "DROP INDEX CONCURRENTLY IF EXISTS idx_users_email;",
			expectedType:   OpDropIndex,
			expectedSev:    SeverityHigh,
			expectedObject: "idx_users_email",
		},
		{
			name:           "drop view",
			sql:            "DROP VIEW user_summary;",
			expectedType:   OpDropView,
			expectedSev:    SeverityHigh,
			expectedObject: "user_summary",
		},
		{
			name:           "drop materialized view",
			sql:            "DROP MATERIALIZED VIEW daily_stats;",
			expectedType:   OpDropView,
			expectedSev:    SeverityHigh,
			expectedObject: "daily_stats",
		},
		{
			name:           "truncate",
			sql:            "TRUNCATE TABLE sessions;",
			expectedType:   OpTruncate,
			expectedSev:    SeverityHigh,
			expectedObject: "sessions",
		},
		{
			name:           "truncate without table keyword",
			sql:            "TRUNCATE sessions;",
			expectedType:   OpTruncate,
			expectedSev:    SeverityHigh,
			expectedObject: "sessions",
		},
		{
			name:           "truncate only",
			sql:            "TRUNCATE TABLE ONLY sessions;",
			expectedType:   OpTruncate,
			expectedSev:    SeverityHigh,
			expectedObject: "sessions",
		},
		{
			name:           "delete without where",
			sql:            "DELETE FROM users;",
			expectedType:   OpDeleteWithoutWhere,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "alter table drop column",
			sql:            "ALTER TABLE users DROP COLUMN email;",
			expectedType:   OpAlterTableDrop,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "alter table drop constraint",
			sql:            "ALTER TABLE orders DROP CONSTRAINT orders_user_fk;",
			expectedType:   OpAlterTableDrop,
			expectedSev:    SeverityHigh,
			expectedObject: "orders",
		},
		{
			name:           "lowercase",
			sql:            "drop table users;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "mixed case",
			sql:            "Drop Table Users;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "Users",
		},
		{
			name:           "quoted identifier",
			sql:            `DROP TABLE "users";`,
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "backtick identifier",
			sql:            "DROP TABLE `users`;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "users",
		},
		{
			name:           "qualified name",
			sql:            "DROP TABLE public.users;",
			expectedType:   OpDropTable,
			expectedSev:    SeverityHigh,
			expectedObject: "public.users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Analyze(tt.sql)
			require.Len(t, findings, 1)

			finding := findings[0]
			assert.Equal(t, tt.expectedType, finding.Type)
			assert.Equal(t, tt.expectedSev, finding.Severity)
			assert.Equal(t, tt.expectedObject, finding.ObjectName)
			assert.NotEmpty(t, finding.Statement)
		})
	}
}

func TestAnalyzeNoFindings(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"select", "SELECT * FROM users;"},
		{"insert", "INSERT INTO users (name) VALUES ('alice');"},
		{"update with where", "UPDATE users SET name = 'bob' WHERE id = 1;"},
		{"delete with where", "DELETE FROM users WHERE id = 1;"},
		{"create table", "CREATE TABLE users (id int);"},
		{"alter table add column", "ALTER TABLE users ADD COLUMN email text;"},
		{"line comment", "-- DROP TABLE users;\nSELECT 1;"},
		{"block comment", "/* DROP DATABASE prod; */ SELECT 1;"},
		{"multiline block comment", "/*\nDELETE FROM users;\nTRUNCATE sessions;\n*/ SELECT 1;"},
		{"empty", ""},
		{"word containing delete", "SELECT undeleted FROM archive WHERE x = 1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Analyze(tt.sql))
			assert.False(t, HasDestructiveOperations(tt.sql))
		})
	}
}

func TestAnalyzeMultipleFindings(t *testing.T) {
	sql := `
		DROP TABLE users;
		DROP TABLE orders;
		TRUNCATE TABLE sessions;
	`
	findings := Analyze(sql)
	require.Len(t, findings, 3)

	objects := make([]string, 0, len(findings))
	for _, f := range findings {
		objects = append(objects, f.ObjectName)
	}
	assert.ElementsMatch(t, []string{"users", "orders", "sessions"}, objects)
}

func TestAnalyzeDeleteScopedPerStatement(t *testing.T) {
	// A WHERE in a later statement does not excuse an earlier unbounded
	// DELETE, and vice versa.
	sql := "DELETE FROM users; DELETE FROM orders WHERE id = 1; DELETE FROM logs"

	findings := Analyze(sql)
	require.Len(t, findings, 2)

	objects := []string{findings[0].ObjectName, findings[1].ObjectName}
	assert.ElementsMatch(t, []string{"users", "logs"}, objects)
	for _, f := range findings {
		assert.Equal(t, OpDeleteWithoutWhere, f.Type)
	}
}

func TestAnalyzeCommentedOutWhereStillCounts(t *testing.T) {
	// Stripping the comment removes the WHERE, leaving an unbounded DELETE.
	sql := "DELETE FROM users -- WHERE id = 1"

	findings := Analyze(sql)
	require.Len(t, findings, 1)
	assert.Equal(t, OpDeleteWithoutWhere, findings[0].Type)
	assert.Equal(t, "users", findings[0].ObjectName)
}

func TestAnalyzeMixedSeverities(t *testing.T) {
	sql := "DROP DATABASE prod; DROP TABLE users;"

	findings := Analyze(sql)
	require.Len(t, findings, 2)

	bySeverity := make(map[Severity]OperationType)
	for _, f := range findings {
		bySeverity[f.Severity] = f.Type
	}
	assert.Equal(t, OpDropDatabase, bySeverity[SeverityCritical])
	assert.Equal(t, OpDropTable, bySeverity[SeverityHigh])
}

func TestAnalyzeEvidence(t *testing.T) {
	findings := Analyze("SELECT 1; DROP TABLE IF EXISTS users; SELECT 2;")
	require.Len(t, findings, 1)
	assert.Equal(t, "DROP TABLE IF EXISTS users", findings[0].Statement)
}

func TestHasDestructiveOperations(t *testing.T) {
	assert.True(t, HasDestructiveOperations("DROP TABLE users;"))
	assert.True(t, HasDestructiveOperations("delete from users"))
	assert.False(t, HasDestructiveOperations("SELECT * FROM users;"))
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"line comment", "SELECT 1 -- trailing\nSELECT 2", "SELECT 1  \nSELECT 2"},
		{"block comment", "SELECT /* inline */ 1", "SELECT   1"},
		{"multiline block", "SELECT 1 /* a\nb */ FROM t", "SELECT 1   FROM t"},
		{"no comments", "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripComments(tt.input))
		})
	}
}
