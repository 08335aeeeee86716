// Package all registers every built-in sink backend with the storage
// factory. Import it for side effects:
//
//	import _ "github.com/NeoOrigin/flint-sub000/internal/storage/all"
package all

import (
	_ "github.com/NeoOrigin/flint-sub000/internal/storage/mssql"
	_ "github.com/NeoOrigin/flint-sub000/internal/storage/mysql"
	_ "github.com/NeoOrigin/flint-sub000/internal/storage/postgres"
	_ "github.com/NeoOrigin/flint-sub000/internal/storage/sqlite"
)
