package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintHelpers(t *testing.T) {
	fk := fmt.Errorf("delete year: %w", &pq.Error{Code: "23503"})
	uniq := &pq.Error{Code: "23505"}

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsUniqueViolation(uniq))
	assert.False(t, IsForeignKeyViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}
