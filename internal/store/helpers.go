package store

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// pqInt64Array adapts a []int64 to the driver.Valuer lib/pq needs for an
// ANY($1) clause over a Postgres bigint[] parameter.
func pqInt64Array(v []int64) driver.Valuer {
	return pq.Array(v)
}

// pqStringArray is the string-slice analog, used for slug/username batch
// lookups and for text[] columns like a project's additional categories.
func pqStringArray(v []string) driver.Valuer {
	return pq.Array(v)
}
