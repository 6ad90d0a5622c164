package web

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPages_AllParse(t *testing.T) {
	pages, err := Pages()
	require.NoError(t, err)
	for _, name := range PageNames {
		tmpl, ok := pages[name]
		require.True(t, ok, name)
		assert.NotNil(t, tmpl.Lookup("base"), name)
		assert.NotNil(t, tmpl.Lookup("content"), name)
	}
}

func TestPages_ErrorPageRenders(t *testing.T) {
	pages, err := Pages()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = pages["error"].ExecuteTemplate(&buf, "base", map[string]any{
		"Status":     404,
		"StatusText": "Not Found",
		"Message":    "<movie> not found",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "&lt;movie&gt; not found")
	assert.Contains(t, buf.String(), "<title>404 Not Found</title>")
}

func TestStatic(t *testing.T) {
	assets, err := Static()
	require.NoError(t, err)
	_, err = fs.Stat(assets, "styles.css")
	require.NoError(t, err)
}
