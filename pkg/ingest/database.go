package ingest

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DescribeConnection names a database source without its credentials, for
// history records. Strings pgx cannot parse are named "Database".
func DescribeConnection(conn string) string {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return "Database"
	}
	cfg, err := pgx.ParseConfig(conn)
	if err != nil || cfg.Host == "" {
		return "Database"
	}
	name := cfg.Host
	if cfg.Port != 0 {
		name = fmt.Sprintf("%s:%d", name, cfg.Port)
	}
	if cfg.Database != "" {
		name += "/" + cfg.Database
	}
	return name
}
