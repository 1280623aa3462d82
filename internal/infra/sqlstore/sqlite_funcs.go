package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite"
)

// unicodeLowerFunc replaces SQLite's lower(), which only folds ASCII.
const unicodeLowerFunc = "shop_lower"

var (
	registerFuncsOnce sync.Once
	registerFuncsErr  error
)

// registerSQLiteFuncs installs the Go-backed SQL functions. The driver applies
// them to every connection opened afterwards.
func registerSQLiteFuncs() error {
	registerFuncsOnce.Do(func() {
		err := sqlite.RegisterDeterministicScalarFunction(unicodeLowerFunc, 1, lowerValue)
		if err != nil {
			registerFuncsErr = fmt.Errorf("register %s: %w", unicodeLowerFunc, err)
		}
	})
	return registerFuncsErr
}

func lowerValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		// NULL and numbers pass through
		return v, nil
	}
}
