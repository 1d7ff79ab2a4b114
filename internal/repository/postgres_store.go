package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore wires every repository onto pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:      NewUserRepository(pool),
		Agencies:   NewAgencyRepository(pool),
		Complaints: NewComplaintRepository(pool),
		History:    NewComplaintHistoryRepository(pool),
		Responses:  NewComplaintResponseRepository(pool),
		Ping:       pool.Ping,
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term literally, lower cased,
// anywhere in the column. Callers pair it with ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
