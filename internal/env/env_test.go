package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Production, Parse("production"))
	assert.Equal(t, Local, Parse("local"))
	assert.Equal(t, Local, Parse(""))
	assert.Equal(t, Local, Parse("staging"))
}
