package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"policethief/internal/app/game"
)

func TestColumnParams(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	now := time.Now()
	assert.Equal(t, now, *nullTime(now))

	assert.NotNil(t, rolesParam(nil))
	assert.Empty(t, rolesParam(nil))
	roles := game.Assignment{"a": game.RolePolice}
	assert.Equal(t, roles, rolesParam(roles))

	assert.Equal(t, []string{}, orEmpty(nil))
	assert.Equal(t, []string{"x"}, orEmpty([]string{"x"}))
}
