package docs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var routeAnnotation = regexp.MustCompile(`@Router\s+(\S+)\s+\[(\w+)\]`)

func TestDocumentCoversAnnotatedRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	files, err := filepath.Glob(filepath.Join("..", "internal", "server", "*.go"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	routes := 0
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		src, err := os.ReadFile(file)
		require.NoError(t, err)
		for _, m := range routeAnnotation.FindAllStringSubmatch(string(src), -1) {
			routes++
			path, method := m[1], strings.ToLower(m[2])
			_, ok := doc.Paths[path][method]
			assert.True(t, ok, "%s %s is annotated in %s but missing from the document", method, path, filepath.Base(file))
		}
	}
	assert.Greater(t, routes, 20)
}
