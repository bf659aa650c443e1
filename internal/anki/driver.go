package anki

import (
	"database/sql"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/abdnh/subs2srs-context/internal/search"
)

// driverName is the sqlite3 driver registered with the collection functions
const driverName = "sqlite3_anki"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: registerFunctions,
	})
}

// registerFunctions installs the SQL functions FindNotes relies on and the
// collation newer collection schemas declare on name columns
func registerFunctions(conn *sqlite3.SQLiteConn) error {
	// field_at(flds, ord) returns one field of a notes.flds value
	if err := conn.RegisterFunc("field_at", fieldAt, true); err != nil {
		return err
	}

	// anki_glob(pattern, text) applies a search field pattern
	if err := conn.RegisterFunc("anki_glob", search.Match, true); err != nil {
		return err
	}

	return conn.RegisterCollation("unicase", unicase)
}

func fieldAt(flds string, ord int) string {
	fields := splitFields(flds)
	if ord < 0 || ord >= len(fields) {
		return ""
	}
	return fields[ord]
}

func unicase(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
