package db

import (
	"context"
	"fmt"
)

type seedLeaveType struct {
	name        string
	entitlement float64
}

// Default leave-type catalog. Inserted once; existing rows are left alone so
// operators can adjust entitlements without the seed reverting them.
var defaultLeaveTypes = []seedLeaveType{
	{"Annual Leave", 21},
	{"Sick Leave", 10},
	{"Personal Leave", 5},
	{"Maternity Leave", 90},
	{"Paternity Leave", 14},
	{"Bereavement Leave", 3},
}

// Seed inserts the default leave-type catalog.
func Seed(ctx context.Context, pool Pool) error {
	for _, lt := range defaultLeaveTypes {
		if _, err := pool.Exec(ctx, `
      INSERT INTO leave_types (name, annual_entitlement)
      VALUES ($1, $2)
      ON CONFLICT (name) DO NOTHING
    `, lt.name, lt.entitlement); err != nil {
			return fmt.Errorf("seed leave type %s: %w", lt.name, err)
		}
	}
	return nil
}
