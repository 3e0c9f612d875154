package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core/access"
)

func TestHome(t *testing.T) {
	ts := setup(t)
	rec := ts.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ts.env.Conf.AppName)
}

func TestAuthentication(t *testing.T) {
	ts := setup(t)

	conf := *ts.env.Conf
	conf.SecretKey = "not-the-server-secret"
	forged := getToken(t, &conf, admin)

	ts.run(t, []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/sessions",
			wantCode: http.StatusUnauthorized,
			wantData: errMissingToken,
		},
		{
			name:     "garbage token",
			method:   http.MethodGet,
			path:     "/v1/sessions",
			token:    "garbage",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "forged token",
			method:   http.MethodGet,
			path:     "/v1/sessions",
			token:    forged,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "valid token",
			method:   http.MethodGet,
			path:     "/v1/sessions",
			token:    getToken(t, ts.env.Conf, student),
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown route",
			method:   http.MethodGet,
			path:     "/v1/nowhere",
			token:    getToken(t, ts.env.Conf, admin),
			wantCode: http.StatusNotFound,
		},
	})
}

func TestRoles(t *testing.T) {
	ts := setup(t)

	ownerOnly := access.Principal{ID: "owner-1", Roles: []string{access.RoleAdminOwner}}

	ts.run(t, []httpTest{
		{
			name:     "student cannot create sessions",
			method:   http.MethodPost,
			path:     "/v1/sessions",
			body:     map[string]string{"academic_year": "2024/2025", "term": "First"},
			token:    getToken(t, ts.env.Conf, student),
			wantCode: http.StatusForbidden,
			wantData: errForbidden,
		},
		{
			name:     "teacher cannot create sessions",
			method:   http.MethodPost,
			path:     "/v1/sessions",
			body:     map[string]string{"academic_year": "2024/2025", "term": "First"},
			token:    getToken(t, ts.env.Conf, teacher),
			wantCode: http.StatusForbidden,
			wantData: errForbidden,
		},
		{
			name:     "student cannot record results",
			method:   http.MethodPost,
			path:     "/v1/results",
			body:     map[string]string{},
			token:    getToken(t, ts.env.Conf, student),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "teacher cannot approve results",
			method:   http.MethodPut,
			path:     "/v1/results/x/approve",
			token:    getToken(t, ts.env.Conf, teacher),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "plain admin cannot approve results",
			method:   http.MethodPut,
			path:     "/v1/results/x/approve",
			token:    getToken(t, ts.env.Conf, admin),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "owner reaches the approval handler",
			method:   http.MethodPut,
			path:     "/v1/results/x/approve",
			token:    getToken(t, ts.env.Conf, ownerOnly),
			wantCode: http.StatusNotFound,
			wantData: httpErr{Error: "result not found"},
		},
		{
			name:     "anyone reads the grading scale",
			method:   http.MethodGet,
			path:     "/v1/results/grading-scale",
			token:    getToken(t, ts.env.Conf, student),
			wantCode: http.StatusOK,
			wantData: []map[string]interface{}{
				{"grade": "A", "min": 70},
				{"grade": "B", "min": 60},
				{"grade": "C", "min": 50},
				{"grade": "D", "min": 45},
				{"grade": "F", "min": 0},
			},
		},
		{
			name:     "teacher cannot read invoices",
			method:   http.MethodGet,
			path:     "/v1/invoices",
			token:    getToken(t, ts.env.Conf, teacher),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "teacher cannot run promotions",
			method:   http.MethodPost,
			path:     "/v1/promotions/run",
			token:    getToken(t, ts.env.Conf, teacher),
			wantCode: http.StatusForbidden,
		},
	})
}
