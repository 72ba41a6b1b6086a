package cookies

import (
	"os"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestScoped(t *testing.T) {
	assert := assert_.New(t)

	blob := ".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc123\n"
	path, cleanup, err := Scoped(blob)
	assert.Nil(err)
	assert.NotEmpty(path)

	content, err := os.ReadFile(path)
	assert.Nil(err)
	assert.Equal(blob, string(content))

	info, err := os.Stat(path)
	assert.Nil(err)
	assert.Equal(os.FileMode(0o600), info.Mode().Perm())

	cleanup()
	_, err = os.Stat(path)
	assert.True(os.IsNotExist(err), "cleanup must remove the cookie file")
	// Repeat cleanup is harmless
	cleanup()
}

func TestScoped_Empty(t *testing.T) {
	assert := assert_.New(t)

	path, cleanup, err := Scoped("")
	assert.Nil(err)
	assert.Empty(path)
	assert.NotNil(cleanup)
	cleanup()
}
