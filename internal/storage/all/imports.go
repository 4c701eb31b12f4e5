// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "csvclean/internal/storage/all"
//
// after which storage.New and storage.DialectFor accept "postgres",
// "sqlite" and "mssql".
package all

import (
	_ "csvclean/internal/storage/mssql"
	_ "csvclean/internal/storage/postgres"
	_ "csvclean/internal/storage/sqlite"
)
