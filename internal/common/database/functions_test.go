package database

import (
	"strings"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCreateConnectionString(t *testing.T) {
	assert.Equal(t, "", CreateConnectionString(map[string]string{}))

	s := CreateConnectionString(map[string]string{
		"host":     "localhost",
		"port":     "5432",
		"password": `quoted ' and slashed \`,
	})
	// Map iteration order is not fixed; check each clause individually.
	assert.Contains(t, s, "host='localhost'")
	assert.Contains(t, s, "port='5432'")
	assert.Contains(t, s, `password='quoted \' and slashed \\'`)
	assert.False(t, strings.HasSuffix(s, " "))
}

func TestIsUniqueViolation(t *testing.T) {
	uniqueViolation := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	assert.True(t, IsUniqueViolation(uniqueViolation))
	assert.True(t, IsUniqueViolation(errors.Wrap(uniqueViolation, "insert failed")))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("some other error")))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
}
