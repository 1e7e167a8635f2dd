package common

import (
	"fmt"
	"strings"
)

// QuoteIdentifier quotes an identifier for engines using ANSI double-quote
// quoting. Embedded quotes are doubled.
func QuoteIdentifier(name string) string {
	name = strings.ReplaceAll(name, `"`, `""`)
	return fmt.Sprintf(`"%s"`, name)
}

// QuoteIdentifierBacktick quotes an identifier for engines using backtick
// quoting. Embedded backticks are doubled.
func QuoteIdentifierBacktick(name string) string {
	name = strings.ReplaceAll(name, "`", "``")
	return fmt.Sprintf("`%s`", name)
}
