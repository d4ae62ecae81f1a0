package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const providerCSV = "Facility,ProviderName,UniquePatientsRedacted,EncountersRedacted,ProvClassAndSpecialization,ICDDisplay\n" +
	"Boston,Dr. A,10,20,Oncology,C50.911\n" +
	"Boston,Dr. B,4,8,Radiology,C34.9\n" +
	"Denver,Dr. C,7,9,Oncology,C50.911\n"

type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func newClient(t *testing.T, opts Options) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Password == "" {
		opts.Password = "test123"
	}
	if opts.Schema == "" {
		opts.Schema = "provider"
	}
	opts.DevMode = true
	srv, err := New(opts)
	require.NoError(t, err)
	return &client{t: t, srv: srv}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.srv.Handler().ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(files map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(c.t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *client) login() {
	c.t.Helper()
	w := c.json(http.MethodPost, "/api/login", map[string]string{"password": "test123"})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthzNeedsNoSession(t *testing.T) {
	c := newClient(t, Options{})
	w := c.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginGate(t *testing.T) {
	c := newClient(t, Options{})
	w := c.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.json(http.MethodPost, "/api/login", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Incorrect password")

	c.login()
	w = c.json(http.MethodGet, "/api/columns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "provider", decode(t, w)["schema"])

	w = c.json(http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = c.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginIssuesFreshSession(t *testing.T) {
	c := newClient(t, Options{})
	w := c.json(http.MethodGet, "/api/columns", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, c.cookie)
	before := *c.cookie

	c.login()
	require.NotEqual(t, before.Value, c.cookie.Value)
	assert.Equal(t, http.SameSiteStrictMode, c.cookie.SameSite)

	// the pre-login cookie does not carry the authentication
	stale := &client{t: t, srv: c.srv, cookie: &before}
	w = stale.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, c.srv.Sessions().Len(), "stale request started its own session")
}

func TestViewOneSidedRange(t *testing.T) {
	c := newClient(t, Options{})
	c.login()
	c.upload(map[string]string{"providers.csv": providerCSV})

	w := c.json(http.MethodPost, "/api/view", map[string]any{"range": map[string]any{"min": 5}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode(t, w)
	slider := view["slider"].(map[string]any)
	assert.EqualValues(t, 5, slider["lo"])
	assert.EqualValues(t, 10, slider["hi"])
	assert.EqualValues(t, 2, view["dashboard"].(map[string]any)["rows"])
	assert.EqualValues(t, 3, view["unified_rows"])
	assert.Nil(t, view["warnings"])

	w = c.json(http.MethodPost, "/api/view", map[string]any{"range": map[string]any{"min": 9, "max": 5}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	slider = decode(t, w)["slider"].(map[string]any)
	assert.EqualValues(t, 5, slider["lo"])
	assert.EqualValues(t, 9, slider["hi"])
}

func TestSessionsDoNotShareAuthentication(t *testing.T) {
	a := newClient(t, Options{})
	a.login()
	b := &client{t: t, srv: a.srv}
	w := b.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadAndView(t *testing.T) {
	c := newClient(t, Options{})
	c.login()

	w := c.upload(map[string]string{"providers.csv": providerCSV})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode(t, w)
	assert.Equal(t, []any{"providers.csv"}, up["files"])
	assert.EqualValues(t, 1, up["sheets"])

	w = c.json(http.MethodPost, "/api/view", map[string]any{
		"selections": map[string]any{"facility": map[string]any{"explicit": true, "values": []string{"Boston"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode(t, w)
	assert.Equal(t, "provider", view["schema"])
	slider := view["slider"].(map[string]any)
	assert.Equal(t, true, slider["offered"])
	assert.EqualValues(t, 4, slider["min"])
	assert.EqualValues(t, 10, slider["max"])
	dash := view["dashboard"].(map[string]any)
	assert.EqualValues(t, 2, dash["rows"])
}

func TestUploadReportsBadFilesIndividually(t *testing.T) {
	c := newClient(t, Options{})
	c.login()
	w := c.upload(map[string]string{"notes.txt": "hello", "providers.csv": providerCSV})
	require.Equal(t, http.StatusOK, w.Code)
	up := decode(t, w)
	errs := up["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "error reading file `notes.txt`")
	assert.EqualValues(t, 1, up["sheets"])
}

func TestUploadTooLarge(t *testing.T) {
	c := newClient(t, Options{MaxUploadBytes: 16})
	c.login()
	w := c.upload(map[string]string{"providers.csv": providerCSV})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestViewErrors(t *testing.T) {
	c := newClient(t, Options{})
	c.login()

	w := c.json(http.MethodPost, "/api/view", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "no_uploads", decode(t, w)["code"])

	c.upload(map[string]string{"partial.csv": "Facility,Visits\nBoston,3\n"})
	w = c.json(http.MethodPost, "/api/view", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "missing_columns", body["code"])
	assert.Equal(t, []any{"ProviderName", "UniquePatientsRedacted", "EncountersRedacted"}, body["missing"])
	assert.Equal(t, []any{"Facility", "Visits"}, body["available"])

	w = c.json(http.MethodPost, "/api/view", map[string]string{"schema": "normalized"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c.json(http.MethodDelete, "/api/uploads", nil)
	c.upload(map[string]string{"junk.csv": "Foo\nbar\n"})
	w = c.json(http.MethodPost, "/api/view", map[string]string{"schema": "normalized"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "no_usable_data", decode(t, w)["code"])
}

func TestMapping(t *testing.T) {
	c := newClient(t, Options{Schema: "normalized"})
	c.login()

	w := c.json(http.MethodPut, "/api/mapping", map[string]any{"mapping": map[string]string{"bogus": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "bogus")

	c.upload(map[string]string{"a.csv": "Site,Count\nBoston,3\nDenver,4\n"})
	w = c.json(http.MethodPut, "/api/mapping", map[string]any{
		"mapping": map[string]string{"facility_name": "Site", "encounters": "Count", "visn": "None"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	m := decode(t, w)["mapping"].(map[string]any)
	assert.Equal(t, "Site", m["facility_name"])
	assert.Equal(t, "None", m["visn"])
	assert.Equal(t, "Auto-detect", m["city"])

	w = c.json(http.MethodGet, "/api/columns", nil)
	assert.Equal(t, []any{"Count", "Site"}, decode(t, w)["columns"])

	w = c.json(http.MethodPost, "/api/view", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dash := decode(t, w)["dashboard"].(map[string]any)
	assert.EqualValues(t, 2, dash["rows"])
}

func TestExports(t *testing.T) {
	c := newClient(t, Options{})
	c.login()
	c.upload(map[string]string{"providers.csv": providerCSV})

	w := c.do(httptest.NewRequest(http.MethodGet, "/api/export/full.csv", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fullExportName)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "Facility,ProviderName,UniquePatientsRedacted,EncountersRedacted,ProvClassAndSpecialization,ICDDisplay", lines[0])

	w = c.json(http.MethodPost, "/api/export/filtered.csv", map[string]any{
		"selections": map[string]any{"diagnosis": map[string]any{"codes": "C34.9"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), filteredExportName)
	assert.Equal(t,
		"Facility,ProviderName,UniquePatientsRedacted,EncountersRedacted,ProvClassAndSpecialization,ICDDisplay\n"+
			"Boston,Dr. B,4,8,Radiology,C34.9\n",
		w.Body.String())
}

func TestNewRejectsUnknownSchema(t *testing.T) {
	_, err := New(Options{Schema: "wide"})
	assert.Error(t, err)
}
