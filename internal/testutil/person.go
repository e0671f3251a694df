package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/roach88/pushdown/internal/ir"
)

// Person fields. Nullable columns (name, age, city) contain NULLs in
// PersonRows so that null ordering is exercised.
var (
	PersonID     = ir.NewField("id", nil)
	PersonName   = ir.NewField("name", nil)
	PersonAge    = ir.NewField("age", nil)
	PersonCity   = ir.NewField("city", nil)
	PersonActive = ir.NewField("active", ir.BoolToInt)
	PersonBorn   = ir.NewField("born", ir.TimeToUnixMillis)
	PersonRef    = ir.NewField("ref", ir.UUIDToString)
	// PersonCode is stored as text, so its storage order differs from the
	// numeric domain order ("10" < "9").
	PersonCode = ir.NewField("code", ir.IntToString)
)

// PersonTable is the table name used by the person fixtures.
const PersonTable = "person"

// PersonFields lists every person field in column order.
func PersonFields() []ir.Field {
	return []ir.Field{
		PersonID, PersonName, PersonAge, PersonCity,
		PersonActive, PersonBorn, PersonRef, PersonCode,
	}
}

// PersonSchema creates the person table in SQLite.
const PersonSchema = `CREATE TABLE person (
	id     INTEGER PRIMARY KEY,
	name   TEXT,
	age    INTEGER,
	city   TEXT,
	active INTEGER NOT NULL,
	born   INTEGER NOT NULL,
	ref    TEXT NOT NULL,
	code   TEXT NOT NULL
)`

func born(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PersonRows returns the fixture rows in domain representation, in id order.
// A fresh slice is returned on each call.
func PersonRows() []ir.Row {
	return []ir.Row{
		{"id": int64(1), "name": "Alice", "age": int64(34), "city": "Oslo", "active": true, "born": born(1990, time.March, 1), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000001"), "code": int64(9)},
		{"id": int64(2), "name": "Bob", "age": int64(18), "city": "Bergen", "active": true, "born": born(2006, time.May, 17), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000002"), "code": int64(10)},
		{"id": int64(3), "name": "Carol", "age": nil, "city": "Oslo", "active": false, "born": born(1985, time.July, 9), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000003"), "code": int64(100)},
		{"id": int64(4), "name": nil, "age": int64(52), "city": nil, "active": true, "born": born(1972, time.January, 30), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000004"), "code": int64(2)},
		{"id": int64(5), "name": "Dave", "age": int64(18), "city": "Trondheim", "active": false, "born": born(2006, time.December, 24), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000005"), "code": int64(21)},
		{"id": int64(6), "name": "Eve", "age": int64(27), "city": "Oslo", "active": true, "born": born(1997, time.August, 3), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000006"), "code": int64(3)},
		{"id": int64(7), "name": "frank", "age": nil, "city": "Bergen", "active": true, "born": born(1999, time.February, 14), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000007"), "code": int64(77)},
		{"id": int64(8), "name": "Grace_50%", "age": int64(61), "city": "Tromsø", "active": false, "born": born(1963, time.October, 5), "ref": uuid.MustParse("00000000-0000-7000-8000-000000000008"), "code": int64(1)},
	}
}

// RowIDs extracts the id column, in row order.
func RowIDs(rows []ir.Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if id, ok := r["id"].(int64); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
