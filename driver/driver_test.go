package driver_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/corvidsql/corvid/driver"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("corvid", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDriverExecAndQueryRoundTrip(t *testing.T) {
	db := openDB(t)

	_, err := db.Exec("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO users VALUES (1, 'ann');")
	require.NoError(t, err)

	rows, err := db.Query("SELECT id, name FROM users;")
	require.NoError(t, err)
	defer rows.Close()

	var count int
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		require.Equal(t, int64(1), id)
		require.Equal(t, "ann", name)
		count++
	}
	require.Equal(t, 1, count)
}

func TestDriverQueryColumns(t *testing.T) {
	db := openDB(t)
	_, err := db.Exec("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));")
	require.NoError(t, err)

	rows, err := db.Query("SELECT * FROM users;")
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, cols)
}

func TestDriverBeginCommitIsNoop(t *testing.T) {
	db := openDB(t)
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestDriverExecBindsArgsIntoPlaceholders(t *testing.T) {
	db := openDB(t)
	_, err := db.Exec("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO users VALUES (?, ?);", 1, "ann")
	require.NoError(t, err)

	rows, err := db.Query("SELECT id, name FROM users WHERE name = ?;", "ann")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var id int64
	var name string
	require.NoError(t, rows.Scan(&id, &name))
	require.Equal(t, int64(1), id)
	require.Equal(t, "ann", name)
}

func TestDriverExecBindsArgWithQuoteNeedsEscaping(t *testing.T) {
	db := openDB(t)
	_, err := db.Exec("CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(16));")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO users VALUES (?, ?);", 1, "o'brien")
	require.NoError(t, err)

	rows, err := db.Query("SELECT name FROM users;")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	require.Equal(t, "o'brien", name)
}
