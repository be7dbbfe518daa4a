package handlers_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/omnikit/internal/handlers/testutil"
)

func TestToolkitHandler_RequiresAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/toolkit/hash", map[string]any{"input": "abc"}, "")
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestToolkitHandler_Hash(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	out := testutil.DecodeData[struct {
		Digests map[string]string `json:"digests"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/hash", map[string]any{
		"input":      "abc",
		"algorithms": []string{"md5", "sha256"},
	}, token), http.StatusOK)
	require.Equal(t, map[string]string{
		"md5":    "900150983cd24fb0d6963f7d28e17f72",
		"sha256": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
	}, out.Digests)

	w := env.Request(http.MethodPost, "/api/toolkit/hash", map[string]any{
		"input":      "abc",
		"algorithms": []string{"whirlpool"},
	}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
}

func TestToolkitHandler_BcryptRoundTrip(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	hashed := testutil.DecodeData[struct {
		Hash string `json:"hash"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/bcrypt", map[string]any{"input": "hunter2", "cost": 4}, token), http.StatusOK)
	require.True(t, strings.HasPrefix(hashed.Hash, "$2a$04$"))

	verdict := testutil.DecodeData[struct {
		Match bool `json:"match"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/bcrypt", map[string]any{"input": "hunter2", "hash": hashed.Hash}, token), http.StatusOK)
	require.True(t, verdict.Match)

	verdict = testutil.DecodeData[struct {
		Match bool `json:"match"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/bcrypt", map[string]any{"input": "hunter3", "hash": hashed.Hash}, token), http.StatusOK)
	require.False(t, verdict.Match)
}

func TestToolkitHandler_Argon2(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	hashed := testutil.DecodeData[struct {
		Hash string `json:"hash"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/argon2", map[string]any{"input": "hunter2"}, token), http.StatusOK)
	require.True(t, strings.HasPrefix(hashed.Hash, "$argon2id$v=19$"))

	verdict := testutil.DecodeData[struct {
		Match bool `json:"match"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/argon2", map[string]any{"input": "hunter2", "hash": hashed.Hash}, token), http.StatusOK)
	require.True(t, verdict.Match)

	w := env.Request(http.MethodPost, "/api/toolkit/argon2", map[string]any{"input": "hunter2", "hash": "$2a$04$nope"}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
}

func TestToolkitHandler_Generators(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	single := testutil.DecodeData[struct {
		Values []string `json:"values"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/uuid", nil, token), http.StatusOK)
	require.Len(t, single.Values, 1)
	require.Len(t, single.Values[0], 36)

	batch := testutil.DecodeData[struct {
		Values []string `json:"values"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/uuid", map[string]any{
		"version":    7,
		"count":      3,
		"no_hyphens": true,
	}, token), http.StatusOK)
	require.Len(t, batch.Values, 3)
	for _, value := range batch.Values {
		require.Len(t, value, 32)
		require.Equal(t, byte('7'), value[12])
	}

	w := env.Request(http.MethodPost, "/api/toolkit/uuid", map[string]any{"version": 1}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	passwords := testutil.DecodeData[struct {
		Values []string `json:"values"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/password", map[string]any{
		"length":  24,
		"count":   2,
		"symbols": false,
	}, token), http.StatusOK)
	require.Len(t, passwords.Values, 2)
	for _, value := range passwords.Values {
		require.Len(t, value, 24)
		require.Regexp(t, `^[A-Za-z0-9]+$`, value)
	}
}

func TestToolkitHandler_Codecs(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	encoded := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/encode", map[string]any{"codec": "base64", "input": "hello, world"}, token), http.StatusOK)
	require.Equal(t, "aGVsbG8sIHdvcmxk", encoded.Output)

	decoded := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/decode", map[string]any{"codec": "base64", "input": encoded.Output}, token), http.StatusOK)
	require.Equal(t, "hello, world", decoded.Output)

	w := env.Request(http.MethodPost, "/api/toolkit/decode", map[string]any{"codec": "base64", "input": "%%%"}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodPost, "/api/toolkit/encode", map[string]any{"codec": "rot13", "input": "x"}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
}

func TestToolkitHandler_JSONAndYAML(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	minified := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/json/format", map[string]any{
		"input":     `{ "b": 1, "a": 2 }`,
		"minify":    true,
		"sort_keys": true,
	}, token), http.StatusOK)
	require.Equal(t, `{"a":2,"b":1}`, minified.Output)

	w := env.Request(http.MethodPost, "/api/toolkit/json/format", map[string]any{"input": `{"a":}`}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	report := testutil.DecodeData[struct {
		Valid bool `json:"valid"`
		Line  int  `json:"line"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/json/validate", map[string]any{"input": "{\n  \"a\": ,\n}"}, token), http.StatusOK)
	require.False(t, report.Valid)
	require.GreaterOrEqual(t, report.Line, 1)

	flat := testutil.DecodeData[map[string]any](t, env.Request(http.MethodPost, "/api/toolkit/json/flatten", map[string]any{
		"input": `{"server":{"port":8000,"tags":["a"]}}`,
	}, token), http.StatusOK)
	require.Equal(t, float64(8000), flat["server.port"])
	require.Equal(t, "a", flat["server.tags.0"])

	yamlOut := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/json/to-yaml", map[string]any{"input": `{"name":"omnikit","enabled":true}`}, token), http.StatusOK)
	require.Equal(t, "name: omnikit\nenabled: true\n", yamlOut.Output)

	jsonOut := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/yaml/to-json", map[string]any{"input": yamlOut.Output, "minify": true}, token), http.StatusOK)
	require.JSONEq(t, `{"name":"omnikit","enabled":true}`, jsonOut.Output)
}

func TestToolkitHandler_DiffAndCase(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	diff := testutil.DecodeData[struct {
		Added   int  `json:"added"`
		Removed int  `json:"removed"`
		Equal   bool `json:"equal"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/diff", map[string]any{
		"before": "alpha\nbeta\n",
		"after":  "alpha\ngamma\n",
	}, token), http.StatusOK)
	require.Equal(t, 1, diff.Added)
	require.Equal(t, 1, diff.Removed)
	require.False(t, diff.Equal)

	w := env.Request(http.MethodPost, "/api/toolkit/diff", map[string]any{"before": "a", "after": "b", "mode": "sentence"}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	snake := testutil.DecodeData[struct {
		Output string `json:"output"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/case", map[string]any{"style": "snake", "input": "userAccountID"}, token), http.StatusOK)
	require.Equal(t, "user_account_id", snake.Output)

	all := testutil.DecodeData[map[string]string](t, env.Request(http.MethodPost, "/api/toolkit/case", map[string]any{"input": "hello world"}, token), http.StatusOK)
	require.Equal(t, "helloWorld", all["camel"])
	require.Equal(t, "hello-world", all["kebab"])
}

func TestToolkitHandler_QRCode(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	w := env.Request(http.MethodPost, "/api/toolkit/qrcode", map[string]any{
		"content": "https://example.com",
		"size":    128,
		"format":  "png",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	inline := testutil.DecodeData[struct {
		DataURI string `json:"data_uri"`
		Size    int    `json:"size"`
	}](t, env.Request(http.MethodPost, "/api/toolkit/qrcode", map[string]any{"content": "hello"}, token), http.StatusOK)
	require.True(t, strings.HasPrefix(inline.DataURI, "data:image/png;base64,"))
	require.Positive(t, inline.Size)

	w = env.Request(http.MethodPost, "/api/toolkit/qrcode", map[string]any{"content": ""}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")
}
