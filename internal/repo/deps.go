package repo

import (
	"errors"

	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "github.com/esseedoubleyou/goldmonitor/internal/cache"
)

// Dependencies bundles the shared infrastructure required by repository
// implementations. DBConn and Cache are optional; HistoryCSV names the
// wide-CSV file used when Postgres is absent or unreachable.
type Dependencies struct {
	DBConn     sqlx.SqlConn
	Cache      cache.Cache
	TTL        cachekeys.TTLSet
	HistoryCSV string
}

// Set exposes strongly typed repositories to application logic.
type Set struct {
	History HistoryRepo
}

// New constructs the repository set, validating required dependencies.
func New(deps Dependencies) (*Set, error) {
	if deps.DBConn == nil && deps.HistoryCSV == "" {
		return nil, errors.New("repo: need a Postgres connection or a history CSV path")
	}
	return &Set{History: newHistoryRepo(deps)}, nil
}
