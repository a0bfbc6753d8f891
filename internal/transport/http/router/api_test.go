package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grafik/internal/core/auth"
	"grafik/internal/core/config"
	"grafik/internal/core/database"
	"grafik/internal/notify"
	"grafik/internal/repo"
	"grafik/internal/service"
	"grafik/internal/sheet"
	mdw "grafik/internal/transport/http/middleware"
	resp "grafik/internal/transport/http/response"
	"grafik/pkg/utils"
)

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (o *outbox) Notify(_ context.Context, m notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, m)
	return nil
}

func newTestAPI(t *testing.T, lim config.Limits) *gin.Engine {
	t.Helper()
	utils.HashCost = bcrypt.MinCost

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	svc := service.New(&service.Deps{
		Store:    repo.NewStore(db),
		Notifier: &outbox{},
		JWT:      &auth.JWTer{Secret: []byte("test-secret"), Issuer: "grafik", TTL: time.Hour},
		Log:      zap.NewNop(),
		BaseURL:  "http://grafik.test",
	})
	return NewAPIEngine(zap.NewNop(), svc, Options{
		Mode:     gin.TestMode,
		Limits:   lim,
		TokenTTL: time.Hour,
		Pinger:   sqlDB.Ping,
	})
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// apiReq JSON 客户端请求；body 为 url.Values 时按表单发送
func apiReq(method, path, token string, body any) *http.Request {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		raw, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeResp(t *testing.T, w *httptest.ResponseRecorder) (resp.Resp, map[string]any) {
	t.Helper()
	var out resp.Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	data, _ := out.Data.(map[string]any)
	return out, data
}

func register(t *testing.T, r http.Handler, name, email string) {
	t.Helper()
	w := serve(r, apiReq(http.MethodPost, "/register", "", map[string]any{
		"name": name, "surname": "Testowa", "email": email, "agency": "DPL",
		"password": "haslo123", "confirm_password": "haslo123", "accept_tos": true,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func login(t *testing.T, r http.Handler, email string) string {
	t.Helper()
	w := serve(r, apiReq(http.MethodPost, "/login", "", map[string]any{"email": email, "password": "haslo123"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := decodeResp(t, w)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(mdw.KeyRequestID))
}

func TestFormLoginSetsCookieAndRedirects(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	register(t, r, "Anna", "anna@example.com")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{
		"email": {"anna@example.com"}, "password": {"haslo123"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(r, req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var token *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == mdw.TokenCookie {
			token = ck
		}
	}
	require.NotNil(t, token)
	assert.True(t, token.HttpOnly)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(token)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 错误密码：回到登录页并带 flash
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{
		"email": {"anna@example.com"}, "password": {"zle-haslo"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(r, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestTripFlowAndRoleGates(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	register(t, r, "Admin", "admin@example.com")
	register(t, r, "Anna", "anna@example.com")
	admin := login(t, r, "admin@example.com")
	worker := login(t, r, "anna@example.com")

	w := serve(r, apiReq(http.MethodGet, "/api/events", "", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	form := url.Values{"title": {"Hala"}, "trip_date": {"2099-01-15"}, "spots": {"1"}}
	w = serve(r, apiReq(http.MethodPost, "/trips/add", worker, form))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, apiReq(http.MethodPost, "/trips/add", admin, form))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := decodeResp(t, w)
	tripID := int(data["id"].(float64))
	tripPath := fmt.Sprintf("/trips/%d", tripID)

	// 创建者已占满唯一名额
	w = serve(r, apiReq(http.MethodPost, tripPath+"/signup", worker, url.Values{"action": {"signup"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out, data := decodeResp(t, w)
	assert.Equal(t, resp.StatusInfo, out.Status)
	assert.Equal(t, "rezerwowy", data["status"])

	w = serve(r, apiReq(http.MethodPost, tripPath+"/signup", worker, url.Values{"action": {"fly"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, apiReq(http.MethodGet, tripPath, worker, nil))
	require.Equal(t, http.StatusOK, w.Code)
	_, data = decodeResp(t, w)
	assert.EqualValues(t, 1, data["occupied"])
	assert.EqualValues(t, 0, data["available"])

	w = serve(r, apiReq(http.MethodGet, "/api/events", worker, nil))
	require.Equal(t, http.StatusOK, w.Code)
	out, _ = decodeResp(t, w)
	assert.Len(t, out.Data, 1)

	w = serve(r, apiReq(http.MethodGet, "/api/trip-details-fragment/999", worker, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, apiReq(http.MethodPost, tripPath+"/send-to-office", admin, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	out, _ = decodeResp(t, w)
	assert.Equal(t, "Nie zdefiniowano żadnych odbiorców w Twoim profilu.", out.Message)

	w = serve(r, apiReq(http.MethodPost, tripPath+"/edit", admin, url.Values{"kilometers": {"abc"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, apiReq(http.MethodGet, "/admin/users", worker, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = serve(r, apiReq(http.MethodGet, "/admin/users", admin, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 年月必须是 JSON 整数，字符串一律 400 且不删除任何数据
	for _, body := range []map[string]any{
		{"year": "2099", "month": 1},
		{"year": "rok", "month": 1},
		{"year": 2099, "month": "1"},
		{"month": 1},
	} {
		w = serve(r, apiReq(http.MethodPost, "/admin/clear-month", admin, body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}

	w = serve(r, apiReq(http.MethodPost, "/admin/clear-month", admin, map[string]any{"year": 2099, "month": 1}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data = decodeResp(t, w)
	assert.EqualValues(t, 1, data["deleted"])
}

func TestBlockedUserIsLockedOut(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	register(t, r, "Admin", "admin@example.com")
	register(t, r, "Anna", "anna@example.com")
	admin := login(t, r, "admin@example.com")
	worker := login(t, r, "anna@example.com")

	w := serve(r, apiReq(http.MethodGet, "/admin/users", admin, nil))
	require.Equal(t, http.StatusOK, w.Code)
	_, data := decodeResp(t, w)
	users := data["users"].([]any)
	var workerID int
	for _, u := range users {
		m := u.(map[string]any)
		if m["email"] == "anna@example.com" {
			workerID = int(m["id"].(float64))
		}
	}
	require.NotZero(t, workerID)

	w = serve(r, apiReq(http.MethodPost, fmt.Sprintf("/admin/users/set-status/%d", workerID), admin,
		url.Values{"status": {"zablokowany"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, apiReq(http.MethodGet, "/api/me", worker, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, apiReq(http.MethodPost, "/login", "", map[string]any{"email": "anna@example.com", "password": "haslo123"}))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportRequiresDPL(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	register(t, r, "Admin", "admin@example.com")
	admin := login(t, r, "admin@example.com")

	w := serve(r, apiReq(http.MethodGet, "/admin/export", admin, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "grafik_Admin_")

	w = serve(r, apiReq(http.MethodPost, "/profile/change-agency", admin, url.Values{"agency": {"JMG"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = serve(r, apiReq(http.MethodGet, "/admin/export", admin, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func uploadReq(t *testing.T, token, field, name string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/admin/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestImportUploadField(t *testing.T) {
	r := newTestAPI(t, config.Limits{})
	register(t, r, "Admin", "admin@example.com")
	admin := login(t, r, "admin@example.com")

	book, err := sheet.Sample(time.Date(2099, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// 上传字段名为 excel_file，其他字段名视为未选文件
	w := serve(r, uploadReq(t, admin, "file", "grafik.xlsx", book))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, uploadReq(t, admin, "excel_file", "grafik.csv", book))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, uploadReq(t, admin, "excel_file", "grafik.xlsx", book))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := decodeResp(t, w)
	assert.EqualValues(t, 1, data["created"])
}

func TestPerIPRateLimit(t *testing.T) {
	r := newTestAPI(t, config.Limits{PerIPRPS: 0.001, PerIPBurst: 2})
	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他 IP 不受影响
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxBody(t *testing.T) {
	r := newTestAPI(t, config.Limits{MaxBodyMB: 1})
	big := bytes.Repeat([]byte("a"), 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	w := serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRegistryPriority(t *testing.T) {
	var order []string
	reg := &Registry{}
	reg.Register(
		&fakeModule{name: "late", prio: 200, order: &order},
		&fakeModule{name: "default", prio: -1, order: &order},
		&fakeModule{name: "early", prio: 1, order: &order},
	)
	gin.SetMode(gin.TestMode)
	reg.MountAllPublic(gin.New().Group(""))
	assert.Equal(t, []string{"early", "default", "late"}, order)
}

type fakeModule struct {
	name  string
	prio  int
	order *[]string
}

func (m *fakeModule) MountPublic(*gin.RouterGroup) { *m.order = append(*m.order, m.name) }

func (m *fakeModule) Priority() int {
	if m.prio < 0 {
		return 100
	}
	return m.prio
}
