package migrations

import "embed"

// PostgresFS embeds the migrations for the identity, click, conversion
// and processed-file tables.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the migrations for the analytics mirror.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
