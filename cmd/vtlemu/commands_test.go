package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/renderapi"
)

const petstoreOutput = "{\n  \"petId\": \"7\",\n  \"owner\": \"O\\'Brien\",\n  \"tags\": [\"cat\",\"indoor\"]\n}\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestRender_jsonEvent(t *testing.T) {
	out, err := execute(t, "render", "-t", "testdata/petstore.vtl", "-e", "testdata/petstore.json")

	require.NoError(t, err)
	assert.Equal(t, petstoreOutput, out)
}

func TestRender_yamlEvent(t *testing.T) {
	out, err := execute(t, "render", "-t", "testdata/petstore.vtl", "-e", "testdata/petstore.yaml")

	require.NoError(t, err)
	assert.Equal(t, petstoreOutput, out)
}

func TestRender_lambdaEvents(t *testing.T) {
	out, err := execute(t, "render", "-t", "testdata/petstore.vtl", "-e", "testdata/petstore-proxy.json", "--event-format", "proxy")
	require.NoError(t, err)
	assert.Equal(t, petstoreOutput, out)

	out, err = execute(t, "render", "-t", "testdata/petstore.vtl", "-e", "testdata/petstore-v2.json", "--event-format", "v2")
	require.NoError(t, err)
	assert.Equal(t, petstoreOutput, out)
}

func TestLoadEvent_formats(t *testing.T) {
	proxy, err := loadEvent("testdata/petstore-proxy.json", "proxy")
	require.NoError(t, err)
	assert.Equal(t, "PUT", proxy.HTTPMethod)
	assert.Equal(t, "prod", proxy.RequestContext["stage"])
	assert.Equal(t, "pets.internal", proxy.StageVariables["backend"])

	v2, err := loadEvent("testdata/petstore-v2.json", "v2")
	require.NoError(t, err)
	assert.Equal(t, "PUT", v2.HTTPMethod)
	assert.Equal(t, "/pets/7", v2.Path)
	assert.Equal(t, "PUT /pets/{petId}", v2.RequestContext["resourcePath"])

	_, err = loadEvent("testdata/petstore.json", "soap")
	assert.EqualError(t, err, "unknown event format 'soap'")
}

func TestRender_minifyAndOverrides(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "t.vtl")
	require.NoError(t, os.WriteFile(template, []byte(`#set($context.responseOverride.status = 202)
{ "missing": $input.json('$.nope') }`), 0o644))

	out, err := execute(t, "render", "-t", template, "--minify", "--json-miss", "null", "--overrides")
	require.NoError(t, err)

	var res renderapi.Response
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, `{"missing":null}`, res.Result)
	assert.Equal(t, 202, res.Overrides.Response.Status)
}

func TestRender_strict(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "bad.vtl")
	require.NoError(t, os.WriteFile(template, []byte(`#if($a`), 0o644))

	out, err := execute(t, "render", "-t", template)
	require.NoError(t, err)
	assert.Contains(t, out, "Error: ")

	_, err = execute(t, "render", "-t", template, "--strict")
	assert.Error(t, err)
}

func TestRender_errors(t *testing.T) {
	_, err := execute(t, "render")
	assert.Error(t, err)

	_, err = execute(t, "render", "-t", "testdata/nope.vtl")
	assert.Error(t, err)

	_, err = execute(t, "render", "-t", "testdata/petstore.vtl", "-e", "testdata/nope.json")
	assert.Error(t, err)

	_, err = execute(t, "render", "-t", "testdata/petstore.vtl", "--json-miss", "zero")
	assert.Error(t, err)
}
