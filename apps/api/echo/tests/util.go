package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/result"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/tests"
)

var (
	admin     = access.Principal{ID: "admin-1", Name: "Admin", Roles: []string{access.RoleAdmin}}
	principal = access.Principal{ID: "principal-1", Name: "Principal", Roles: []string{access.RoleAdminPrincipal}}
	teacher   = access.Principal{ID: "teacher-1", Name: "Teacher", Roles: []string{access.RoleTeacher}}
	student   = access.Principal{ID: "stu-1", Name: "Student", Roles: []string{access.RoleStudent}}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testServer struct {
	*Server
	env *testutil.Env
}

func setup(t *testing.T) testServer {
	t.Helper()

	env := testutil.NewEnv(t)
	validate, translator := core.NewValidator()
	session.RegisterValidators(validate, translator)
	result.RegisterValidators(validate, translator)
	ranking.RegisterValidators(validate, translator)
	fee.RegisterValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:       env.Conf,
		Logger:     env.Logger,
		Validate:   validate,
		Translator: translator,
		SessionSvc: env.Sessions,
		ResultSvc:  env.Results,
		RankingSvc: env.Ranking,
		FeeSvc:     env.Fees,
	})
	t.Cleanup(func() { _ = srv.Close() })
	return testServer{Server: srv, env: env}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{} // compared as JSON when set
}

func newAuthRequest(t *testing.T, method, path, token string, data interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if data != nil {
		body.Write(marshalObj(t, data))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func (ts testServer) do(t *testing.T, method, path, token string, data interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(t, method, path, token, data)
	ts.ServeHTTP(rec, req)
	return rec
}

func (ts testServer) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func getToken(t *testing.T, conf *core.Config, p access.Principal) string {
	t.Helper()
	token, err := GenerateToken(NewClaims(p, conf), conf.SecretKey)
	require.NoError(t, err, "getToken() failed")
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	if raw, ok := obj.([]byte); ok {
		return raw
	}
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marshalObj() failed")
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "decode() failed: %s", rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(marshalObj(t, tt.wantData)), rec.Body.String())
	}
}
